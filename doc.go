// Package detention provides a minute-ledger for tracking detention time
// owed by students, organised into classes.
//
// Detention is a library first. The engine records every adjustment as
// an append-only signed entry and keeps a cached running total per
// student that always equals the sum of that student's entries:
//
//   - Add or remove minutes with a note (AddEntry)
//   - Discharge a 45-minute block (MarkServed45)
//   - Undo the most recent adjustment (UndoLastEntry)
//   - Replace a class roster from a pasted list (ReplaceStudents)
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/detention"
//	    "github.com/xraph/detention/store/sqlite"
//	)
//
//	st, err := sqlite.Open("detention.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	t := detention.New(st)
//	if err := t.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Stop()
//
//	c, _ := t.CreateClass(ctx, "Period 3")
//	students, _ := t.ImportRoster(ctx, c.ID, "Ana, Ben\nCara")
//	t.AddEntry(ctx, students[0].ID, 5, "late")
//
// # Owed blocks
//
// A total decomposes into whole 45-minute blocks owed plus progress
// toward the next block. Division is floored, so negative totals (credit)
// decompose the same way:
//
//	detention.OwedCount(50) // 1
//	detention.Progress(50)  // 5
//	detention.OwedCount(-1) // -1
//	detention.Progress(-1)  // 44
//
// # Storage
//
// Backends live under store/: memory, sqlite, postgres and mongo. Each
// performs entry mutations and the matching total update in one unit of
// work. The store/driver package opens one by name.
//
// # Identifiers
//
// Every entity is identified by a TypeID ("cls_…", "stu_…", "ent_…").
// See the id package.
package detention
