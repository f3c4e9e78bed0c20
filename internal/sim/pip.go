package sim

import "github.com/quillaja/cloudsim/internal/registry"

// Pip is the component capability set, re-exported for convenience.
type Pip = registry.Pip
