// Package config loads the waypoint tool configuration.
//
// The configuration lives in waypoint.json (or waypoint.yaml) at the
// project root and tells the CLI where the route file is and how to run
// the playground server.
//
// # Configuration File Structure
//
//	{
//	  "routes": "routes.yaml",
//	  "basename": "/app",
//	  "server": {
//	    "host": "localhost",
//	    "port": 4000
//	  },
//	  "cacheSize": 512,
//	  "maxRedirects": 20,
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "waypoint"
//	  },
//	  "logLevel": "info"
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
