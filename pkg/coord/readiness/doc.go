// Package readiness provides a bitset barrier for staged start-up. Each
// initializer sets its own bit once it is ready; waiters block until all
// (or any) of the bits they care about are set.
//
// A waiter may ask for its bits to be cleared on exit. The clear happens
// under the same lock that found the condition satisfied, so no other task
// can see the satisfied state between the check and the clear.
//
//	g := readiness.NewGroup()
//	go func() { g.Set(NetworkReady) }()
//	r := g.Wait(ctx, NetworkReady|SensorReady,
//		readiness.WaitOptions{MatchAll: true, ClearOnExit: true}, coord.Forever)
package readiness
