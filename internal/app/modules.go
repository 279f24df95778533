package app

import (
	"github.com/anvil-build/anvil/components/archive"
	"github.com/anvil-build/anvil/components/copy"
	"github.com/anvil-build/anvil/components/run"
	"github.com/anvil-build/anvil/internal/component"
)

// coreModules are the built-in blueprints registered when the caller does
// not supply its own set.
var coreModules = []component.Module{
	&archive.Module{},
	&copy.Module{},
	&run.Module{},
}
