package horizonsync

import (
	"github.com/mwnode/basenode/infrastructure/logger"
)

var log = logger.RegisterSubSystem("HRZN")
