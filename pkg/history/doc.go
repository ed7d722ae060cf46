// Package history records hydration runs in SQLite so their outputs can be
// compared later.
//
// Every run gets a row in the runs table; every document it wrote gets a row
// in the outputs table holding the key-sorted JSON rendering and its
// SHA-256 digest. Digests make unchanged outputs cheap to skip when two runs
// are diffed.
//
// # Usage
//
//	st, err := history.Open(cfg.History, logger)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	h, _ := hydrate.New(&cfg.Hydration, files, hydrate.WithHistory(st))
//	report, _ := h.HydrateAllApps(ctx, in, out)
//
//	prev, err := st.PreviousRun(ctx, report.RunID)
//	if err == nil {
//	    diffs, _ := st.Diff(ctx, prev.ID, report.RunID)
//	}
//
// Store is safe for concurrent use.
package history
