package syncrpc

import (
	"github.com/mwnode/basenode/infrastructure/logger"
	"github.com/mwnode/basenode/util/panics"
)

var log = logger.RegisterSubSystem("SRPC")
var spawn = panics.GoroutineWrapperFunc(log)
