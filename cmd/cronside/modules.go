package main

// Compiled-in modules. Each registers itself with the core registry in its
// init function.
import (
	_ "github.com/cronside/cronside/internal/gateway"
	_ "github.com/cronside/cronside/internal/notify"
	_ "github.com/cronside/cronside/internal/observability"
	_ "github.com/cronside/cronside/internal/runner"
	_ "github.com/cronside/cronside/internal/runstore"
	_ "github.com/cronside/cronside/internal/schedule"
)
