package jobs

import "go.uber.org/fx"

// Module provides job queue infrastructure. It has no providers of its
// own: internal/runner builds its Queue against batch_runs and wraps its
// process function in a Worker, registering start/stop with the fx
// lifecycle itself.
var Module = fx.Module("jobs")
