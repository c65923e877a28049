// Package config loads behave.json, the project file of a site served or
// processed by the behave command.
//
// # Configuration File Structure
//
//	{
//	  "pages": "pages",
//	  "settings": "settings.json",
//	  "server": {
//	    "addr": ":8080"
//	  },
//	  "log": {
//	    "level": "info"
//	  },
//	  "fragments": {
//	    "kind": "http",
//	    "baseURL": "https://www.example.org"
//	  },
//	  "viewport": {
//	    "width": 1280,
//	    "devicePixelRatio": 1
//	  },
//	  "timeout": "10s"
//	}
//
// Relative paths are resolved against the directory holding behave.json.
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
