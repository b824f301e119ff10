// Package shell is the interactive front end: it reads lines, runs builtins
// in-process and hands everything else to the job launcher, waiting for
// foreground jobs while the reaper settles background ones.
package shell
