// Package history persists the terminal outcome of every upload job in the
// client's local SQLite database so the `history` command can list past
// uploads across restarts.
//
//	repo := history.NewSQLiteRepository(db)
//	_ = repo.Add(ctx, entry)
//	recent, _ := repo.List(ctx, 20)
package history
