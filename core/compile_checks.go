package core

var (
	_ Generator               = (*RandomGenerator)(nil)
	_ MetricsRecorder         = NopMetricsRecorder{}
	_ ActivitySink            = (*OperationalActivitySink)(nil)
	_ ActivitySink            = (*MemoryActivitySink)(nil)
	_ ActivityRetentionPruner = (*MemoryActivitySink)(nil)
	_ ConfigProvider          = (*CfgxConfigProvider)(nil)
	_ OptionsResolver         = GoOptionsResolver{}
	_ dispatchSpace           = (*Space[ActivityResult])(nil)
	_ dispatchSpace           = (*Space[PermissionResult])(nil)
	_ spaceObserver           = (*Service)(nil)
)
