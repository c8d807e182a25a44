package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ Verifier            = VerifyFunc(nil)
	_ InteractionObserver = ObserverFunc(nil)
	_ MetricsRecorder     = NopMetricsRecorder{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
