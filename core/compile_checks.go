package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ TransactionStore    = (*MemoryTransactionStore)(nil)
	_ TransactionConsumer = (*MemoryTransactionStore)(nil)
	_ AuthAction          = AuthActionFuncs{}
	_ SignAction          = SignActionFuncs{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
