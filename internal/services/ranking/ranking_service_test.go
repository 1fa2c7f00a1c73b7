package ranking_test

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/serviexpress/backend/internal/models"
	"github.com/serviexpress/backend/internal/services/ranking"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Usuario{}, &models.Servicio{}, &models.Calificacion{}))
	return db
}

func crearProveedor(t *testing.T, db *gorm.DB, nombre string) *models.Usuario {
	t.Helper()
	u := models.Usuario{Nombre: nombre, Email: nombre + "@example.com", Password: "x", Rol: models.RolProveedor, Activo: true}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func calificar(t *testing.T, db *gorm.DB, cliente, proveedor *models.Usuario, puntuaciones ...int) {
	t.Helper()
	for _, p := range puntuaciones {
		c := models.Calificacion{ClienteID: cliente.ID, ProveedorID: proveedor.ID, Puntuacion: p}
		require.NoError(t, db.Create(&c).Error)
	}
}

func TestTopProveedores(t *testing.T) {
	db := setupDB(t)
	svc := ranking.NewService(db, nil)

	cliente := models.Usuario{Nombre: "Luis", Email: "luis@example.com", Password: "x", Rol: models.RolCliente, Activo: true}
	require.NoError(t, db.Create(&cliente).Error)

	marta := crearProveedor(t, db, "marta")
	pedro := crearProveedor(t, db, "pedro")
	sola := crearProveedor(t, db, "sola")

	calificar(t, db, &cliente, marta, 5, 5, 4)
	calificar(t, db, &cliente, pedro, 3, 4, 3)
	calificar(t, db, &cliente, sola, 5) // una sola reseña, queda fuera

	top, err := svc.TopProveedores(context.Background(), 10, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)

	require.Equal(t, marta.ID, top[0].ProveedorID)
	require.Equal(t, "marta", top[0].Nombre)
	require.InDelta(t, 4.67, top[0].Promedio, 0.01)
	require.Equal(t, int64(3), top[0].Total)

	require.Equal(t, pedro.ID, top[1].ProveedorID)
	require.InDelta(t, 3.33, top[1].Promedio, 0.01)
}

func TestTopProveedoresRespetaLimite(t *testing.T) {
	db := setupDB(t)
	svc := ranking.NewService(db, nil)

	cliente := models.Usuario{Nombre: "Luis", Email: "luis@example.com", Password: "x", Rol: models.RolCliente, Activo: true}
	require.NoError(t, db.Create(&cliente).Error)

	for _, nombre := range []string{"a", "b", "c"} {
		p := crearProveedor(t, db, nombre)
		calificar(t, db, &cliente, p, 4, 5)
	}

	top, err := svc.TopProveedores(context.Background(), 2, 1)
	require.NoError(t, err)
	require.Len(t, top, 2)
}

func TestTopProveedoresSinDatos(t *testing.T) {
	db := setupDB(t)
	svc := ranking.NewService(db, nil)

	top, err := svc.TopProveedores(context.Background(), 10, 1)
	require.NoError(t, err)
	require.Empty(t, top)
}
