package ldbstore

import (
	"github.com/mwnode/basenode/infrastructure/logger"
)

var log = logger.RegisterSubSystem("CHST")
