package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"docchat/loader/service"
	"docchat/store"
	"docchat/types"
)

func init() {
	loadEnvVariables()
}

func main() {
	cfg := types.ConfigFromEnv()

	docStore, closeStore, err := buildStore(cfg)
	if err != nil {
		log.Fatal("error to initialize document store: ", err)
	}
	defer closeStore()

	if err := service.New(docStore, cfg).Run(); err != nil {
		log.Fatal(err)
	}
}

func buildStore(cfg types.Config) (store.DocStorer, func(), error) {
	if cfg.StoreBackend == "postgres" {
		ctx := context.Background()
		connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.PGHost, cfg.PGPort, cfg.PGUser, cfg.PGPass, cfg.PGDBName)
		pg, err := store.NewPostgresStore(ctx, connStr)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Init(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, func() { pg.Close() }, nil
	}

	fs, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {}, nil
}

func loadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}
}
