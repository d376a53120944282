package chat

import (
	"log"
	"os"
	"path/filepath"
	"plugin"
	"runtime/debug"
	"sync"
)

const modulePath = "github.com/HimbeerserverDE/mt-multiserver-chat"

var plugins []*plugin.Plugin
var pluginsMu sync.RWMutex

// LoadPlugins loads all plugins from the plugins directory
// next to the executable. Plugins register their handlers
// and placeholders in their init functions.
func LoadPlugins() error {
	path := Path("plugins")
	os.Mkdir(path, 0777)

	dir, err := os.ReadDir(path)
	if err != nil {
		return err
	}

	pluginsMu.Lock()
	defer pluginsMu.Unlock()

	plugins = []*plugin.Plugin{}

	for _, file := range dir {
		p, err := plugin.Open(filepath.Join(path, file.Name()))
		if err != nil {
			log.Print("{←|⇶} ", err)
			continue
		}

		plugins = append(plugins, p)
	}

	log.Print("{←|⇶} load plugins")
	return nil
}

// Version returns the version of this module
// the running executable was built with.
func Version() (string, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}

	if info.Main.Path == modulePath {
		return info.Main.Version, true
	}

	for _, dep := range info.Deps {
		if dep.Path == modulePath {
			return dep.Version, true
		}
	}

	return "", false
}
