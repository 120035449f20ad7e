package database_test

import (
	"testing"

	"github.com/gocrud/host/configure/database"
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/logging"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name string
}

func TestSqliteDatabase(t *testing.T) {
	builder := core.NewApplicationBuilder().
		ConfigureLogging(func(lb *logging.LoggingBuilder) {
			lb.SetMinimumLevel(logging.LogLevelError)
		}).
		Configure(database.Configure(func(b *database.Builder) {
			b.AddSqlite("default", "file::memory:?cache=shared", func(o *database.DatabaseOptions) {
				o.MaxOpenConns = 5
				o.AutoMigrate = []any{&User{}}
			})
		}))

	app := builder.Build()

	var db *gorm.DB
	app.GetService(&db)
	if db == nil {
		t.Fatal("default database should be registered")
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 5 {
		t.Errorf("MaxOpenConns = %d", got)
	}

	if err := db.Create(&User{Name: "test"}).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	var count int64
	if err := db.Model(&User{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d", count)
	}
}

func TestDatabaseBuilderErrors(t *testing.T) {
	logger := logging.NewLogger()

	builder := database.NewBuilder()
	// 缺少 dialector
	builder.AddDatabase("invalid", nil, nil)

	if _, err := builder.Build(logger); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestEmptyBuilderProducesNoFactory(t *testing.T) {
	factory, err := database.NewBuilder().Build(logging.NewLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if factory != nil {
		t.Error("empty builder should produce nil factory")
	}
}
