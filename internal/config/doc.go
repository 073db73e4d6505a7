// Package config provides the configuration for exoshell.
//
// Nothing is read unless asked for. Configuration is built in layers with
// later layers overriding earlier ones:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← EXOSHELL_PROMPT, EXOSHELL_SCROLLBACK, ...
//	├─────────────────────────────┤
//	│  2. Config File             │  ← $EXOSHELL_CONFIG (.toml, .yaml or .yml)
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Basic Usage
//
//	cfg, path, err := config.FromEnvironment(os.LookupEnv)
//	if err != nil {
//	    return err
//	}
//
// # Live Reload
//
// When a config file is in use, a Watcher reloads it whenever it changes
// on disk and delivers the result on a channel:
//
//	w, err := config.NewWatcher(path)
//	...
//	for r := range w.Reloads() {
//	    if r.Err != nil {
//	        log.Printf("config: %v", r.Err)
//	        continue
//	    }
//	    apply(r.Config)
//	}
//
// # File Format
//
//	prompt = "> "
//	log_level = "debug"
//	log_file = "/tmp/exoshell.log"
//	rc_file = "~/.exoshellrc.lua"
//	spawn_mode = "pty"
//	child_policy = "wait"
//	grace_period = "3s"
//	max_children = 16
//	scrollback = 5000
//
//	[status]
//	foreground = "white"
//	background = "#1d2b35"
//	accent = "teal"
package config
