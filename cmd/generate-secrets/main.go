package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fieldcrew/crew-ledger/internal/utils"
	"github.com/sirupsen/logrus"
)

// Prints fresh values for the ledger API's signing secret and the
// notification webhook token. Output goes to stdout so it can be redirected
// into an env file; notes go to stderr.
func main() {
	export := flag.Bool("export", false, "prefix each line with export for sourcing in a shell")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	secrets, err := utils.GenerateSecrets()
	if err != nil {
		logger.WithError(err).Fatal("Could not generate crew-ledger secrets")
	}

	prefix := ""
	if *export {
		prefix = "export "
	}
	fmt.Printf("%sJWT_SECRET=%s\n", prefix, secrets.JWTSecret)
	fmt.Printf("%sNOTIFY_WEBHOOK_TOKEN=%s\n", prefix, secrets.NotifyWebhookToken)

	logger.Info("Rotating JWT_SECRET signs out every crew-ledger session; update NOTIFY_WEBHOOK_TOKEN on the dispatch board at the same time")
}
