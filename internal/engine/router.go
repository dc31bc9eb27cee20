package engine

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the entity routes on api (the protected /api
// group). Fixed paths are registered before the parameterised ones.
func RegisterRoutes(api fiber.Router, h *Handler, files *FileHandler) {
	api.Post("/uploads", files.Upload)

	api.Get("/person/options", h.Options("person"))
	api.Get("/person/employment-options", h.Options("employment"))

	registerEntityRoutes(api.Group("/master"), h)

	api.Get("/:entity/:id/:section", h.GetSection)
	api.Put("/:entity/:id/:section", h.PutSection)

	registerEntityRoutes(api, h)
}

func registerEntityRoutes(r fiber.Router, h *Handler) {
	r.Get("/:entity/list", h.List)
	r.Post("/:entity/create", h.Create)
	r.Put("/:entity/update", h.Update)
	r.Delete("/:entity/delete", h.Delete)

	r.Get("/:entity", h.List)
	r.Post("/:entity", h.Create)
	r.Put("/:entity", h.Update)
	r.Delete("/:entity", h.Delete)
}
