// Package config loads configuration structs from YAML files, .env files and
// environment variables.
//
// Sources are layered in this order, later ones winning:
//
//  1. the YAML file (explicit via WithConfigFile, otherwise searched for)
//  2. the .env file, loaded into the process environment with godotenv
//  3. environment variables carrying the service prefix
//
// # Usage
//
//	var cfg httpclient.Config
//	err := config.Load("spacs", &cfg, config.WithConfigFile("client.yml"))
//
// With service name "spacs", SPACS_BASE_URL sets base_url and
// SPACS_POOL_MAX_IDLE_CONNS sets pool.max_idle_conns.
package config
