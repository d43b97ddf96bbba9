package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/plus1250/jobatrend/internal/auth/app"
	"github.com/plus1250/jobatrend/pkg/cryptox"
	"github.com/plus1250/jobatrend/pkg/jwtx"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "keygen" {
		if err := keygen(os.Args[2:]); err != nil {
			log.Fatalf("keygen: %v", err)
		}
		return
	}

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

// keygen prints fresh key material for AUTH_SIGNING_SECRET(_FILE) or
// AUTH_SIGNING_KEY_FILE.
func keygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	alg := fs.String("alg", jwtx.AlgorithmHS256, "HS256 or EdDSA")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch *alg {
	case jwtx.AlgorithmHS256:
		secret, err := cryptox.GenerateSecret(cryptox.SecretSize)
		if err != nil {
			return err
		}
		fmt.Println(secret)
	case jwtx.AlgorithmEdDSA:
		pem, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return err
		}
		_, _ = os.Stdout.Write(pem)
	default:
		return fmt.Errorf("%w: %q", jwtx.ErrUnsupportedAlg, *alg)
	}
	return nil
}
