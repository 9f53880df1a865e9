// cmd/devtoken prints an HS256 token accepted by JWTAuth, for local testing
// without the identity provider.
// Uso: go run ./cmd/devtoken -email admin@coliseo.test -groups coliseo-admin
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/DanielPaucar/control-coliseo/internal/config"
	"github.com/DanielPaucar/control-coliseo/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	email := flag.String("email", "operador@coliseo.test", "claim email (operador)")
	name := flag.String("name", "Usuario Demo", "claim name")
	groups := flag.String("groups", "", "comma separated groups, e.g. coliseo-admin")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET no está configurado")
		os.Exit(1)
	}

	var gs []string
	for _, g := range strings.Split(*groups, ",") {
		if g = strings.TrimSpace(g); g != "" {
			gs = append(gs, g)
		}
	}

	now := time.Now()
	claims := middleware.JWTClaims{
		Email:  *email,
		Name:   *name,
		Groups: gs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   *email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("rol=%s\n%s\n", middleware.ResolveRole(gs, middleware.RoleGroups{Admin: cfg.GroupAdmin, Finanzas: cfg.GroupFinanzas}), signed)
}
