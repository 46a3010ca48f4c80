// Package rxflow is a push-based reactive stream engine. An Observable
// describes a lazy source of values; subscribing a Sink starts it and returns
// a Subscriber that owns every resource the stream acquired. Operators are
// plain functions from one Producer to the next and compose with Pipe.
//
// Timing goes through a Scheduler. Four disciplines share one Clock: queue
// runs work inline and trampolines recursion, async dispatches on timers,
// asap batches into micro-tasks and animation batches into frames. An Engine
// builds a named set of schedulers from Config, attaches Prometheus metrics
// and hands out ConnectableHooks for logging and metrics around shared
// subscriptions. Tests swap the system clock for a VirtualClock.
//
// # Subjects and multicast
//
// Subject, BehaviourSubject and ReplaySubject are both observable and
// observer. Connectable shares one upstream subscription through a subject;
// the Share and Publish family of operators wrap it with reference counting
// or explicit Connect.
//
// # Operators
//
// Higher-order operators (MergeMap, ConcatMap, SwitchMap, GroupBy, Bucket,
// TakeUntil) live next to the usual transformation, filtering and
// combination operators. Custom operators are built with Operate and a
// Harness, which takes care of forwarding, disposal and panic recovery.
//
// # Bridging to brokers
//
// The bridge subpackage publishes a stream onto a Watermill topic and turns a
// topic back into an Observable, carrying completion and errors as control
// messages so that a stream survives the hop between processes.
package rxflow
