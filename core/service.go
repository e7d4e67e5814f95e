package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service owns the activity and permission correlation spaces. It is built
// explicitly and scoped to the host's lifetime; there is no package-level
// instance.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	generator       Generator
	activitySink    ActivitySink
	operationalSink *OperationalActivitySink
	activities      *Space[ActivityResult]
	permissions     *Space[PermissionResult]
	spaces          map[string]dispatchSpace
	now             func() time.Time
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorFactory    ErrorFactory
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	Generator       Generator
	ActivitySink    ActivitySink
}

type dispatchSpace interface {
	Name() string
	Reclaim(ctx context.Context, code int) bool
	Pending(code int) bool
	Stats() SpaceStats
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve(defaultDispatchServiceName, builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger(defaultDispatchServiceName); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.generator == nil {
		builder.generator = NewRandomGenerator(finalConfig.Generator.MaxDrawAttempts)
	}

	activities, err := NewSpace[ActivityResult](SpaceActivity, ActivitySpaceBound, builder.generator)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	permissions, err := NewSpace[PermissionResult](SpacePermission, PermissionSpaceBound, builder.generator)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	svc := &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		generator:       builder.generator,
		activities:      activities,
		permissions:     permissions,
		spaces: map[string]dispatchSpace{
			SpaceActivity:   activities,
			SpacePermission: permissions,
		},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}

	if finalConfig.Activity.Enabled {
		primary := builder.activitySink
		if primary == nil {
			primary = NewMemoryActivitySink(0)
		}
		operational, sinkErr := NewOperationalActivitySink(
			primary,
			builder.activityFallback,
			builder.activityRetention,
			finalConfig.Activity.BufferSize,
		)
		if sinkErr != nil {
			return nil, mapBuildError(builder.errorMapper, sinkErr)
		}
		svc.operationalSink = operational
		svc.activitySink = operational
	}

	activities.observer = svc
	permissions.observer = svc
	return svc, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorFactory:    s.errorFactory,
		ErrorMapper:     s.errorMapper,
		ConfigProvider:  s.configProvider,
		OptionsResolver: s.optionsResolver,
		Generator:       s.generator,
		ActivitySink:    s.activitySink,
	}
}

func (s *Service) Activities() *Space[ActivityResult] {
	if s == nil {
		return nil
	}
	return s.activities
}

func (s *Service) Permissions() *Space[PermissionResult] {
	if s == nil {
		return nil
	}
	return s.permissions
}

func (s *Service) RegisterActivityCallback(ctx context.Context, callback Callback[ActivityResult]) (int, error) {
	if s == nil || s.activities == nil {
		return 0, fmt.Errorf("core: dispatch service is not configured")
	}
	code, err := s.activities.RegisterCallback(ctx, callback)
	if err != nil {
		return 0, s.mapError(err)
	}
	return code, nil
}

func (s *Service) DeliverActivityResult(ctx context.Context, code int, resultCode int, data []byte) bool {
	if s == nil {
		return false
	}
	return s.activities.Deliver(ctx, code, ActivityResult{ResultCode: resultCode, Data: data})
}

func (s *Service) RegisterPermissionCallback(ctx context.Context, callback Callback[PermissionResult]) (int, error) {
	if s == nil || s.permissions == nil {
		return 0, fmt.Errorf("core: dispatch service is not configured")
	}
	code, err := s.permissions.RegisterCallback(ctx, callback)
	if err != nil {
		return 0, s.mapError(err)
	}
	return code, nil
}

func (s *Service) DeliverPermissionResult(ctx context.Context, code int, granted bool) bool {
	if s == nil {
		return false
	}
	return s.permissions.Deliver(ctx, code, PermissionResult{Granted: granted})
}

// DeliverPermissionStatuses reduces raw grant statuses with AllGranted
// before delivering.
func (s *Service) DeliverPermissionStatuses(ctx context.Context, code int, statuses []int) bool {
	return s.DeliverPermissionResult(ctx, code, AllGranted(statuses))
}

// Deliver routes a transport-neutral delivery to its space. The only error
// is an unknown space; a miss is reported through the outcome.
func (s *Service) Deliver(ctx context.Context, delivery Delivery) (DeliveryOutcome, error) {
	if s == nil {
		return DeliveryOutcome{}, fmt.Errorf("core: dispatch service is not configured")
	}
	space, err := s.resolveSpaceName(delivery.Space)
	if err != nil {
		return DeliveryOutcome{}, err
	}
	outcome := DeliveryOutcome{Space: space, Code: delivery.Code}
	switch space {
	case SpaceActivity:
		outcome.Delivered = s.DeliverActivityResult(ctx, delivery.Code, delivery.ResultCode, delivery.Data)
	case SpacePermission:
		granted := delivery.Granted
		if delivery.GrantResults != nil {
			granted = AllGranted(delivery.GrantResults)
		}
		outcome.Delivered = s.DeliverPermissionResult(ctx, delivery.Code, granted)
	}
	return outcome, nil
}

// Reclaim abandons a pending code. It reports false when the code was not
// pending.
func (s *Service) Reclaim(ctx context.Context, space string, code int) (bool, error) {
	target, err := s.lookupSpace(space)
	if err != nil {
		return false, err
	}
	return target.Reclaim(ctx, code), nil
}

func (s *Service) IsPending(_ context.Context, space string, code int) (bool, error) {
	target, err := s.lookupSpace(space)
	if err != nil {
		return false, err
	}
	return target.Pending(code), nil
}

func (s *Service) SpaceStats(_ context.Context, space string) (SpaceStats, error) {
	target, err := s.lookupSpace(space)
	if err != nil {
		return SpaceStats{}, err
	}
	return target.Stats(), nil
}

func (s *Service) AllSpaceStats(context.Context) []SpaceStats {
	if s == nil {
		return nil
	}
	return []SpaceStats{s.activities.Stats(), s.permissions.Stats()}
}

func (s *Service) ListActivity(ctx context.Context, filter ActivityFilter) (ActivityPage, error) {
	if s == nil || s.activitySink == nil {
		return ActivityPage{}, s.mapError(fmt.Errorf("core: activity sink is not configured"))
	}
	if space := strings.TrimSpace(filter.Space); space != "" {
		resolved, err := s.resolveSpaceName(space)
		if err != nil {
			return ActivityPage{}, err
		}
		filter.Space = resolved
	}
	page, err := s.activitySink.List(ctx, filter)
	if err != nil {
		return ActivityPage{}, s.mapError(err)
	}
	return page, nil
}

func (s *Service) EnforceActivityRetention(ctx context.Context) (int, error) {
	if s == nil || s.operationalSink == nil {
		return 0, nil
	}
	deleted, err := s.operationalSink.EnforceRetention(ctx)
	if err != nil {
		return 0, s.mapError(err)
	}
	return deleted, nil
}

// Close flushes and stops the activity sink. Pending callbacks are kept;
// they die with the service.
func (s *Service) Close() {
	if s == nil || s.operationalSink == nil {
		return
	}
	s.operationalSink.Close()
}

func (s *Service) lookupSpace(space string) (dispatchSpace, error) {
	if s == nil {
		return nil, fmt.Errorf("core: dispatch service is not configured")
	}
	name, err := s.resolveSpaceName(space)
	if err != nil {
		return nil, err
	}
	return s.spaces[name], nil
}

func (s *Service) resolveSpaceName(space string) (string, error) {
	name := NormalizeSpace(space)
	if name == "" {
		return "", s.mapError(badInputError("core: space is required", nil))
	}
	if _, ok := s.spaces[name]; !ok {
		return "", s.mapError(&UnknownSpaceError{Space: space})
	}
	return name, nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func NormalizeSpace(space string) string {
	return strings.TrimSpace(strings.ToLower(space))
}
