// Package config holds the runtime settings of the chopsticks server.
//
// Values come from command line flags, each of which also reads an
// environment variable; a .env file is loaded first. Config.Validate rejects
// combinations the server cannot start with, such as Redis locking on a
// file store.
package config
