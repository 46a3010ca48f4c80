package rxflow

import (
	"context"
	"iter"
	"time"

	runtimepkg "github.com/drblury/rxflow/internal/runtime"
	configpkg "github.com/drblury/rxflow/internal/runtime/config"
	errspkg "github.com/drblury/rxflow/internal/runtime/errors"
	idspkg "github.com/drblury/rxflow/internal/runtime/ids"
	"github.com/drblury/rxflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/rxflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/rxflow/internal/runtime/metadata"
	"github.com/drblury/rxflow/internal/runtime/metrics"
	"github.com/drblury/rxflow/internal/runtime/operators"
	"github.com/drblury/rxflow/internal/runtime/scheduler"
)

type (
	Engine             = runtimepkg.Engine
	EngineDependencies = runtimepkg.EngineDependencies
	Config             = configpkg.Config

	Producer     = runtimepkg.Producer
	Observable   = runtimepkg.Observable
	Publisher    = runtimepkg.Publisher
	Operator     = runtimepkg.Operator
	Subscriber   = runtimepkg.Subscriber
	Subscription = runtimepkg.Subscription
	Teardown     = runtimepkg.Teardown
	TeardownFunc = runtimepkg.TeardownFunc
	Teardowns    = runtimepkg.Teardowns
	Sink         = runtimepkg.Sink
	Observer     = runtimepkg.Observer

	SubjectLike      = runtimepkg.SubjectLike
	Subject          = runtimepkg.Subject
	BehaviourSubject = runtimepkg.BehaviourSubject
	ReplaySubject    = runtimepkg.ReplaySubject
	ReplayOptions    = runtimepkg.ReplayOptions

	Connectable         = runtimepkg.Connectable
	ConnectableOptions  = runtimepkg.ConnectableOptions
	ConnectableHooks    = runtimepkg.ConnectableHooks
	ConnectableRecorder = runtimepkg.ConnectableRecorder
	SubjectFactory      = runtimepkg.SubjectFactory
	RefCount            = runtimepkg.RefCount

	Notification     = runtimepkg.Notification
	NotificationKind = runtimepkg.NotificationKind

	Scheduler       = scheduler.Scheduler
	SchedulerKind   = scheduler.Kind
	SchedulerOption = scheduler.Option
	Action          = scheduler.Action
	Work            = scheduler.Work
	Clock           = scheduler.Clock
	SystemClock     = scheduler.SystemClock
	VirtualClock    = scheduler.VirtualClock

	Project       = operators.Project
	Selector      = operators.Selector
	Combiner      = operators.Combiner
	GroupOptions  = operators.GroupOptions
	BucketOptions = operators.BucketOptions
	BucketRange   = operators.BucketRange

	MetricsCollector = metrics.Collector
	MetricsSnapshot  = metrics.Snapshot

	Metadata      = metadatapkg.Metadata
	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	ConfigValidationError = errspkg.ConfigValidationError
	PanicError            = errspkg.PanicError
)

// Harness describes a custom operator; see Operate.
type Harness[S any] = runtimepkg.Harness[S]

var (
	NewEngine    = runtimepkg.NewEngine
	TryNewEngine = runtimepkg.TryNewEngine

	ValidateConfig = configpkg.ValidateConfig

	NewObservable       = runtimepkg.NewObservable
	NewSubscriber       = runtimepkg.NewSubscriber
	NewSubscription     = runtimepkg.NewSubscription
	NewObserver         = runtimepkg.NewObserver
	OnNext              = runtimepkg.OnNext
	NewSubject          = runtimepkg.NewSubject
	NewBehaviourSubject = runtimepkg.NewBehaviourSubject
	NewReplaySubject    = runtimepkg.NewReplaySubject
	NewConnectable      = runtimepkg.NewConnectable
	NewMulticast        = runtimepkg.NewMulticast
	LoggingHooks        = runtimepkg.LoggingHooks
	MetricsHooks        = runtimepkg.MetricsHooks

	Pipe       = runtimepkg.Pipe
	TryPipe    = runtimepkg.TryPipe
	AsProducer = runtimepkg.AsProducer

	Of       = runtimepkg.Of
	Empty    = runtimepkg.Empty
	Never    = runtimepkg.Never
	Throw    = runtimepkg.Throw
	Interval = runtimepkg.Interval
	Timer    = runtimepkg.Timer

	NextNotification     = runtimepkg.NextNotification
	ErrorNotification    = runtimepkg.ErrorNotification
	CompleteNotification = runtimepkg.CompleteNotification

	NewScheduler          = scheduler.New
	NewQueueScheduler     = scheduler.NewQueue
	NewAsyncScheduler     = scheduler.NewAsync
	NewAsapScheduler      = scheduler.NewAsap
	NewAnimationScheduler = scheduler.NewAnimation
	QueueScheduler        = scheduler.Queue
	AsyncScheduler        = scheduler.Async
	AsapScheduler         = scheduler.Asap
	AnimationScheduler    = scheduler.Animation
	WithSchedulerName     = scheduler.WithName
	WithClock             = scheduler.WithClock
	WithSchedulerLogger   = scheduler.WithLogger
	WithRecorder          = scheduler.WithRecorder
	WithErrorHandler      = scheduler.WithErrorHandler
	NewSystemClock        = scheduler.NewSystemClock
	NewVirtualClock       = scheduler.NewVirtualClock

	MergeMap    = operators.MergeMap
	MergeMapTo  = operators.MergeMapTo
	MergeAll    = operators.MergeAll
	ConcatMap   = operators.ConcatMap
	ConcatMapTo = operators.ConcatMapTo
	ConcatAll   = operators.ConcatAll
	SwitchMap   = operators.SwitchMap
	SwitchMapTo = operators.SwitchMapTo
	SwitchAll   = operators.SwitchAll
	GroupBy     = operators.GroupBy
	Bucket      = operators.Bucket
	TakeUntil   = operators.TakeUntil
	SkipUntil   = operators.SkipUntil

	Map           = operators.Map
	MapTo         = operators.MapTo
	Filter        = operators.Filter
	Tap           = operators.Tap
	Finalize      = operators.Finalize
	Scan          = operators.Scan
	Reduce        = operators.Reduce
	Pairwise      = operators.Pairwise
	ToArray       = operators.ToArray
	StartWith     = operators.StartWith
	Materialize   = operators.Materialize
	Dematerialize = operators.Dematerialize
	Take          = operators.Take
	TakeWhile     = operators.TakeWhile
	Skip          = operators.Skip
	SkipWhile     = operators.SkipWhile
	First         = operators.First
	Last          = operators.Last
	Delay         = operators.Delay
	Trace         = operators.Trace

	Merge         = operators.Merge
	Concat        = operators.Concat
	Switch        = operators.Switch
	ForkJoin      = operators.ForkJoin
	Zip           = operators.Zip
	CombineLatest = operators.CombineLatest
	MergeWith     = operators.MergeWith
	ConcatWith    = operators.ConcatWith
	SwitchWith    = operators.SwitchWith

	Multicast        = operators.Multicast
	Share            = operators.Share
	ShareReplay      = operators.ShareReplay
	ShareBehaviour   = operators.ShareBehaviour
	Publish          = operators.Publish
	PublishReplay    = operators.PublishReplay
	PublishBehaviour = operators.PublishBehaviour

	Marshal       = jsoncodec.Marshal
	MarshalString = jsoncodec.MarshalString
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal

	ErrNotObservable         = errspkg.ErrNotObservable
	ErrProjectNotObservable  = errspkg.ErrProjectNotObservable
	ErrNotifierNotObservable = errspkg.ErrNotifierNotObservable
	ErrTakeCount             = errspkg.ErrTakeCount
	ErrDelayOutOfRange       = errspkg.ErrDelayOutOfRange
	ErrUnknownScheduler      = errspkg.ErrUnknownScheduler
	ErrConfigRequired        = errspkg.ErrConfigRequired
	ErrLoggerRequired        = errspkg.ErrLoggerRequired
	ErrSubscriberRequired    = errspkg.ErrSubscriberRequired
	ErrPublisherRequired     = errspkg.ErrPublisherRequired
	ErrTopicRequired         = errspkg.ErrTopicRequired
	ErrNoElements            = errspkg.ErrNoElements
	ErrCodecValue            = errspkg.ErrCodecValue
	ErrRemoteStream          = errspkg.ErrRemoteStream

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NewNopLogger              = loggingpkg.NewNopLogger

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.CreateULID
)

// Scheduler names accepted by Config.DefaultScheduler and Engine.Scheduler.
const (
	SchedulerQueue     = configpkg.SchedulerQueue
	SchedulerAsync     = configpkg.SchedulerAsync
	SchedulerAsap      = configpkg.SchedulerAsap
	SchedulerAnimation = configpkg.SchedulerAnimation
)

const (
	NotificationNext     = runtimepkg.NotificationNext
	NotificationError    = runtimepkg.NotificationError
	NotificationComplete = runtimepkg.NotificationComplete
)

// MaxDelay is the longest delay a scheduler accepts.
const MaxDelay = scheduler.MaxDelay

func FromSlice[T any](values []T, sched *Scheduler) *Observable {
	return runtimepkg.FromSlice(values, sched)
}

func FromSeq[T any](seq iter.Seq[T]) *Observable {
	return runtimepkg.FromSeq(seq)
}

func FromChan[T any](ctx context.Context, ch <-chan T) *Observable {
	return runtimepkg.FromChan(ctx, ch)
}

func Operate[S any](h Harness[S]) Operator {
	return runtimepkg.Operate(h)
}

// ReplayWindow returns ReplayOptions keeping everything seen during window.
// Example: rxflow.NewReplaySubject(rxflow.ReplayWindow(time.Minute))
func ReplayWindow(window time.Duration) ReplayOptions {
	return ReplayOptions{WindowTime: window}
}
