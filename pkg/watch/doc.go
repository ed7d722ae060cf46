// Package watch keeps hydrated output in sync with its input tree.
//
// A Watcher runs one hydration at start, then again whenever a percy file
// under the input root changes (fsnotify events, debounced) or its cron
// schedule fires. Runs are serialized: a trigger that arrives while a run is
// in progress waits for it to finish.
//
//	w := watch.New(root, cfg.Watch, func(ctx context.Context) (*hydrate.Report, error) {
//	    return h.HydrateAllApps(ctx, root, out)
//	}, watch.WithIgnore(out))
//	err := w.Run(ctx)
package watch
