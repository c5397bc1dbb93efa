package routes

import (
	"strconv"

	"github.com/toolshop/storefront/api/controllers"
	"github.com/toolshop/storefront/pkg/storage/memory"
)

func controllersReadiness(backend *memory.Store) []controllers.ReadinessCheck {
	return []controllers.ReadinessCheck{{Name: "storage", Pinger: backend}}
}

func jsonNumber(id int64) string {
	return strconv.FormatInt(id, 10)
}
