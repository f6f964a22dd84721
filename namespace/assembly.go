package namespace

import (
	"log/slog"

	"github.com/feco93/Namespacefinder/clrmeta"
)

// Notices shown to the user when an assembly cannot be fully read.
const (
	PartialLoadNotice = "Warning: some types couldn't be loaded; continuing with available types."
	LoadErrorPrefix   = "Error loading assembly: "
)

// FromAssembly returns the namespaces declared by the types of the assembly
// at path, along with notices for the user.
//
// Types that cannot be decoded are skipped with a warning notice. If the
// assembly cannot be read at all, the set is empty and the notice carries
// the error; the caller carries on either way.
func FromAssembly(path string, logger *slog.Logger) (Set, []string) {
	if logger == nil {
		logger = slog.Default()
	}

	mod, err := clrmeta.Open(path)
	if err != nil {
		logger.Debug("Assembly load failed", "path", path, "error", err)
		return Set{}, []string{LoadErrorPrefix + err.Error()}
	}

	var notices []string
	if mod.Partial() {
		logger.Debug("Some types could not be loaded",
			"path", path,
			"loaded", len(mod.Types),
			"skipped", mod.Skipped)
		notices = append(notices, PartialLoadNotice)
	}

	values := make([]string, 0, len(mod.Types))
	for _, t := range mod.Types {
		values = append(values, t.Namespace)
	}
	set := NewSet(values...)

	logger.Debug("Read assembly metadata",
		"path", path,
		"module", mod.Name,
		"types", len(mod.Types),
		"namespaces", set.Len())

	return set, notices
}
