package main

import (
	"flag"

	"github.com/ironsheep/image-filter-host/internal/config"
	"github.com/ironsheep/image-filter-host/internal/logging"
)

// options are the flags shared by one-shot runs and serve mode. Empty
// strings mean "not given" so file and environment values survive.
type options struct {
	configPath string
	pluginPath string
	mode       string
	logLevel   string
	logJSON    bool
	textfile   string
	addr       string

	set map[string]bool
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "YAML config file (default ./"+config.DefaultFile+" if present)")
	fs.StringVar(&o.pluginPath, "plugin-path", "", "directory holding plugin libraries (default \""+config.DefaultPluginDir+"\")")
	fs.StringVar(&o.mode, "mode", "", "filter resolution: native, builtin or auto (default native)")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")
	fs.BoolVar(&o.logJSON, "log-json", false, "log as JSON")
}

// load reads the config and applies the flags that were set.
func (o *options) load(fs *flag.FlagSet) (config.Config, error) {
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.pluginPath != "" {
		cfg.PluginDir = o.pluginPath
	}
	if o.mode != "" {
		cfg.Mode = o.mode
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.set["log-json"] {
		cfg.Log.JSON = o.logJSON
	}
	if o.textfile != "" {
		cfg.Metrics.Textfile = o.textfile
	}
	if o.addr != "" {
		cfg.Metrics.Addr = o.addr
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	logging.Configure(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	return cfg, nil
}

// parseInterspersed parses fs over args and returns the positional
// arguments, allowing flags after them as well as before.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}
