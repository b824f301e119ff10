// Package signals holds the shell's signal disposition policy.
//
// # Dispositions
//
// Policy.Interactive catches SIGINT, SIGCHLD and the job-control stop
// signals (SIGTSTP, SIGTTIN, SIGTTOU). The stop signals are discarded so the
// shell itself never stops. Because each signal is caught rather than
// ignored, the Go runtime resets it to the default disposition in every
// forked child, which is the disposition set launched jobs run with.
//
// # Interrupt routing
//
// SIGINT is routed by mode:
//   - ModePrompt: the input line is abandoned. An atomic flag is set for the
//     input loop, stdout and stderr are flushed, and PromptInterrupts fires.
//   - ModeConfirmKill: ForegroundInterrupts fires and the foreground waiter
//     consults a Confirmer.
//
// # Kill confirmation
//
// Confirmer is the state machine
//
//	ForegroundActive -> AwaitingKillConfirmation -> Killed | Resumed
//
// fed by interrupts and input lines. It never reads input itself.
package signals
