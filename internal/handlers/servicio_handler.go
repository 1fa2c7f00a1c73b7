package handlers

import (
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/serviexpress/backend/internal/models"
)

type ServicioHandler struct {
	DB *gorm.DB
}

func NewServicioHandler(db *gorm.DB) *ServicioHandler {
	return &ServicioHandler{DB: db}
}

// presetServicios is the built-in catalog behind POST /auto/:tipo.
// Prices are whole COP.
var presetServicios = map[string]struct {
	Nombre      string
	Descripcion string
	Precio      int64
}{
	"plomeria":     {"Plomería a domicilio", "Reparación de fugas, grifos y sanitarios", 80000},
	"electricidad": {"Electricista certificado", "Instalaciones y reparaciones eléctricas residenciales", 95000},
	"limpieza":     {"Limpieza general", "Limpieza profunda de hogar u oficina", 60000},
	"jardineria":   {"Jardinería", "Poda, siembra y mantenimiento de jardines", 55000},
	"pintura":      {"Pintura de interiores", "Pintura de muros y techos, materiales aparte", 120000},
	"mudanza":      {"Apoyo en mudanzas", "Cargue, transporte y descargue dentro de la ciudad", 150000},
	"carpinteria":  {"Carpintería", "Reparación y fabricación de muebles en madera", 110000},
	"cerrajeria":   {"Cerrajería 24h", "Apertura de puertas y cambio de guardas", 70000},
}

// ListPublic lists servicios with name search, estado filter and
// pagination.
func (h *ServicioHandler) ListPublic(c *fiber.Ctx) error {
	qSearch := strings.TrimSpace(c.Query("q"))
	estado := strings.TrimSpace(c.Query("estado"))

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	filtro := func(db *gorm.DB) *gorm.DB {
		if qSearch != "" {
			db = db.Where("LOWER(nombre) LIKE ?", "%"+strings.ToLower(qSearch)+"%")
		}
		if estado != "" {
			db = db.Where("estado = ?", strings.ToUpper(estado))
		}
		return db
	}

	var totalItems int64
	if err := filtro(h.DB.Model(&models.Servicio{})).Count(&totalItems).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudieron contar los servicios")
	}

	var servicios []models.Servicio
	if err := filtro(h.DB.Preload("Proveedor")).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&servicios).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudieron listar los servicios")
	}

	out := make([]fiber.Map, 0, len(servicios))
	for _, s := range servicios {
		item := fiber.Map{
			"id":          s.ID,
			"nombre":      s.Nombre,
			"descripcion": s.Descripcion,
			"precio":      s.Precio,
			"estado":      s.Estado,
		}
		if s.Proveedor != nil {
			item["proveedor"] = fiber.Map{
				"id":             s.Proveedor.ID,
				"nombre":         s.Proveedor.Nombre,
				"ciudad":         s.Proveedor.Ciudad,
				"disponibilidad": s.Proveedor.Disponibilidad,
			}
		}
		out = append(out, item)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
		"meta": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total_items": totalItems,
			"total_pages": int(math.Ceil(float64(totalItems) / float64(limit))),
		},
	})
}

func (h *ServicioHandler) GetOne(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return fail(c, fiber.StatusBadRequest, "ID inválido")
	}

	var s models.Servicio
	if err := h.DB.Preload("Proveedor").Preload("Cliente").
		First(&s, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Servicio no encontrado")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    s,
	})
}

type servicioReq struct {
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
	Precio      int64  `json:"precio"`
	Estado      string `json:"estado"`
}

type updateServicioReq struct {
	Nombre      *string `json:"nombre"`
	Descripcion *string `json:"descripcion"`
	Precio      *int64  `json:"precio"`
	Estado      *string `json:"estado"`
}

func (h *ServicioHandler) Create(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req servicioReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cuerpo de la petición inválido")
	}

	errors := FieldErrors{}
	if strings.TrimSpace(req.Nombre) == "" {
		errors.Add("nombre", "El nombre es obligatorio")
	}
	if strings.TrimSpace(req.Descripcion) == "" {
		errors.Add("descripcion", "La descripción es obligatoria")
	}
	if req.Precio < 0 {
		errors.Add("precio", "El precio no puede ser negativo")
	}
	if len(errors) > 0 {
		return validationFail(c, errors)
	}

	estado := models.ServicioDisponible
	if req.Estado != "" {
		estado = models.EstadoServicio(strings.ToUpper(req.Estado))
	}

	s := models.Servicio{
		Nombre:      strings.TrimSpace(req.Nombre),
		Descripcion: strings.TrimSpace(req.Descripcion),
		Precio:      req.Precio,
		Estado:      estado,
		ProveedorID: uid,
	}
	if err := h.DB.Create(&s).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudo crear el servicio")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Servicio creado",
		"data":    s,
	})
}

// CreateAuto creates a servicio from the preset catalog, owned by the
// authenticated proveedor.
func (h *ServicioHandler) CreateAuto(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	tipo := strings.ToLower(strings.TrimSpace(c.Params("tipo")))
	preset, found := presetServicios[tipo]
	if !found {
		return fail(c, fiber.StatusNotFound, "Tipo de servicio desconocido: "+tipo)
	}

	s := models.Servicio{
		Nombre:      preset.Nombre,
		Descripcion: preset.Descripcion,
		Precio:      preset.Precio,
		Estado:      models.ServicioDisponible,
		ProveedorID: uid,
	}
	if err := h.DB.Create(&s).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudo crear el servicio")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Servicio creado desde el catálogo",
		"data":    s,
	})
}

func (h *ServicioHandler) Update(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return fail(c, fiber.StatusBadRequest, "ID inválido")
	}

	var s models.Servicio
	if err := h.DB.First(&s, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Servicio no encontrado")
	}

	if s.ProveedorID != uid && currentRol(c) != models.RolAdmin {
		return fail(c, fiber.StatusForbidden, "El servicio pertenece a otro proveedor")
	}

	var req updateServicioReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cuerpo de la petición inválido")
	}

	if req.Nombre != nil && strings.TrimSpace(*req.Nombre) != "" {
		s.Nombre = strings.TrimSpace(*req.Nombre)
	}
	if req.Descripcion != nil && strings.TrimSpace(*req.Descripcion) != "" {
		s.Descripcion = strings.TrimSpace(*req.Descripcion)
	}
	if req.Precio != nil {
		if *req.Precio < 0 {
			errs := FieldErrors{}
			errs.Add("precio", "El precio no puede ser negativo")
			return validationFail(c, errs)
		}
		s.Precio = *req.Precio
	}
	if req.Estado != nil && *req.Estado != "" {
		s.Estado = models.EstadoServicio(strings.ToUpper(*req.Estado))
	}

	if err := h.DB.Save(&s).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "No se pudo actualizar el servicio")
	}

	return ok(c, "Servicio actualizado", s)
}

// Delete removes a servicio. Servicios already referenced by a
// solicitud cannot be deleted; the constraint error is surfaced as a
// message.
func (h *ServicioHandler) Delete(c *fiber.Ctx) error {
	uid, err := currentUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return fail(c, fiber.StatusBadRequest, "ID inválido")
	}

	var s models.Servicio
	if err := h.DB.First(&s, "id = ?", id).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Servicio no encontrado")
	}

	if s.ProveedorID != uid && currentRol(c) != models.RolAdmin {
		return fail(c, fiber.StatusForbidden, "El servicio pertenece a otro proveedor")
	}

	var refs int64
	h.DB.Model(&models.Solicitud{}).Where("servicio_id = ?", s.ID).Count(&refs)
	if refs > 0 {
		return fail(c, fiber.StatusConflict,
			"No se puede eliminar: el servicio tiene solicitudes asociadas")
	}

	if err := h.DB.Delete(&s).Error; err != nil {
		return fail(c, fiber.StatusConflict,
			"No se puede eliminar: el servicio tiene solicitudes asociadas")
	}

	return ok(c, "Servicio eliminado", nil)
}
