package dispatcher

import "github.com/goliatone/go-dispatcher/core"

type Config = core.Config

type GeneratorConfig = core.GeneratorConfig
type ActivityConfig = core.ActivityConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type ActivityResult = core.ActivityResult
type PermissionResult = core.PermissionResult
type Delivery = core.Delivery
type DeliveryOutcome = core.DeliveryOutcome
type SpaceStats = core.SpaceStats

type Generator = core.Generator
type MetricsRecorder = core.MetricsRecorder
type ActivitySink = core.ActivitySink
type ActivityEntry = core.ActivityEntry
type ActivityFilter = core.ActivityFilter
type ActivityPage = core.ActivityPage
type ActivityRetentionPolicy = core.ActivityRetentionPolicy

const (
	SpaceActivity        = core.SpaceActivity
	SpacePermission      = core.SpacePermission
	ActivitySpaceBound   = core.ActivitySpaceBound
	PermissionSpaceBound = core.PermissionSpaceBound

	ResultCanceled    = core.ResultCanceled
	ResultOK          = core.ResultOK
	ResultFirstUser   = core.ResultFirstUser
	PermissionGranted = core.PermissionGranted
	PermissionDenied  = core.PermissionDenied
)

var (
	ErrSpaceExhausted = core.ErrSpaceExhausted
	ErrUnknownSpace   = core.ErrUnknownSpace
)

var (
	WithLogger               = core.WithLogger
	WithLoggerProvider       = core.WithLoggerProvider
	WithMetricsRecorder      = core.WithMetricsRecorder
	WithErrorFactory         = core.WithErrorFactory
	WithErrorMapper          = core.WithErrorMapper
	WithConfigProvider       = core.WithConfigProvider
	WithOptionsResolver      = core.WithOptionsResolver
	WithGenerator            = core.WithGenerator
	WithActivitySink         = core.WithActivitySink
	WithActivityFallbackSink = core.WithActivityFallbackSink
	WithActivityRetention    = core.WithActivityRetention
	NewCfgxConfigProvider    = core.NewCfgxConfigProvider
	NewStaticRawConfigLoader = core.NewStaticRawConfigLoader
	NewRandomGenerator       = core.NewRandomGenerator
	NewSeededGenerator       = core.NewSeededGenerator
	NewMemoryActivitySink    = core.NewMemoryActivitySink
	AllGranted               = core.AllGranted
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
