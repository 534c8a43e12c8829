package leaf

import "github.com/juju/loggo"

// logger replaces the teacher's log.New(os.Stdout, "[pongo2] ", ...) global
// (pongo2_options.go) with a module-scoped structured logger; call sites
// keep the same shape (a package-level logger, Debugf-style helpers).
var logger = loggo.GetLogger("leaf.renderer")

// SetLogLevel adjusts verbosity for the whole module's log output, mirroring
// the teacher's exported Debug toggle without its package-global mutable
// bool (loggo.Level covers Trace/Debug/Info/Warning/Error in one setting).
func SetLogLevel(level loggo.Level) {
	logger.SetLogLevel(level)
}
