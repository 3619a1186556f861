// Package app is the composition root for galley.
//
// Setup turns the config file into a wired Env: the zap logger writing JSON
// to the data directory, the grid definitions, the SQLite session store, and
// a ledger client carrying the stored token. Every command starts from an
// Env; Run adds the background health poller and hands control to the TUI.
//
//	Setup()
//	  ├─> config.Load()        ~/.config/galley/config.toml
//	  ├─> schema.Load()        built-in grids unless schema_path is set
//	  ├─> logging.New()        <data_dir>/galley.log
//	  ├─> kv.OpenSQLite()      <data_dir>/session.db
//	  └─> ledger.NewClient()   token from the session store
//
//	Run()
//	  ├─> StartPoller()        pings /healthz, backs off while offline
//	  └─> ui.Run()             blocks until quit
//
// Each grid opened in the UI, or exported with Export, gets its own
// controller.Controller built by Env.Controller, so per-grid fetch
// generations never interfere with each other.
package app
