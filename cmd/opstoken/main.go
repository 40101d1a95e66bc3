// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command opstoken mints an access token for an operator or a read-only viewer.
//
// Usage:
//
//	JWT_PRIVATE_KEY_PATH=keys/private.pem JWT_PUBLIC_KEY_PATH=keys/public.pem \
//	    go run ./cmd/opstoken --operator ops-tokyo --role operator --ttl 720h
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/kanko/internal/platform/constants"
	"github.com/taibuivan/kanko/internal/platform/sec"
	"github.com/taibuivan/kanko/pkg/uuid"
)

type keys struct {
	PrivateKeyPath string `env:"JWT_PRIVATE_KEY_PATH,required"`
	PublicKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`
}

var (
	operatorID = flag.String("operator", "", "Operator ID recorded in the token (default: a new UUID)")
	name       = flag.String("name", "", "Display name recorded in the token")
	role       = flag.String("role", string(sec.RoleOperator), "Role: admin, operator or viewer")
	ttl        = flag.Duration("ttl", 30*24*time.Hour, "Token lifetime")
)

func main() {
	flag.Parse()

	var paths keys
	if err := env.Parse(&paths); err != nil {
		log.Fatalf("opstoken: %v", err)
	}

	if !sec.UserRole(*role).Valid() {
		log.Fatalf("opstoken: unknown role %q", *role)
	}
	if *ttl <= 0 {
		log.Fatal("opstoken: --ttl must be positive")
	}

	id := *operatorID
	if id == "" {
		id = uuid.New()
	}

	service, err := sec.NewTokenService(paths.PrivateKeyPath, paths.PublicKeyPath, constants.AuthIssuer)
	if err != nil {
		log.Fatalf("opstoken: %v", err)
	}

	token, err := service.GenerateAccessToken(id, *name, sec.UserRole(*role), *ttl)
	if err != nil {
		log.Fatalf("opstoken: %v", err)
	}

	fmt.Fprintf(os.Stderr, "operator=%s role=%s expires=%s\n", id, *role, time.Now().Add(*ttl).UTC().Format(time.RFC3339))
	fmt.Println(token)
}
