// Package jobs launches, tracks and reaps the shell's child processes.
//
// Registry is the set of live jobs: a stack of records ending in a sentinel
// with pid 0. Every mutation happens under one mutex, and both halves of the
// race that matters run inside it:
//   - Launcher forks the child and links its record in one critical section.
//   - Reaper polls wait4(-1, WNOHANG) and unlinks the harvested record in
//     another.
//
// so a child can never be harvested before its record exists.
//
// Each record has exactly one owner, fixed when it is created:
//   - foreground records are released by Foreground.Wait once it observes
//     completion
//   - background records are released by the Reaper when it harvests them
//
// Example wiring:
//
//	registry := jobs.NewRegistry()
//	reaper := jobs.NewReaper(registry, &jobs.ReaperOptions{Output: console})
//	go reaper.Run(ctx, policy.ChildDeaths())
//
//	launcher := jobs.NewLauncher(registry, &jobs.LauncherOptions{Policy: policy})
//	rec, err := launcher.Launch([]string{"sleep", "1"}, false)
//	if err != nil {
//	    return err
//	}
//	res, err := foreground.Wait(ctx, rec, jobs.ForegroundInputs{
//	    Interrupts: policy.ForegroundInterrupts(),
//	})
package jobs
