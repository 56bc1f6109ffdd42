// Package slots provides a fixed-capacity controller for long-running
// background jobs.
//
// A Pool holds exactly two Slots. Each Slot runs at most one job at a time on
// its own execution queue, owns a private copy of the job's arguments and,
// for background jobs, a fixed-size result buffer that holds the job's
// output until it's retrieved.
//
// Jobs are stopped cooperatively: killing a Slot raises its Signal, which
// cancels the context passed to the job. A job that never checks its
// context can't be stopped and occupies its Slot until it returns.
package slots
