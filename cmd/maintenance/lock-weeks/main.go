package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fieldcrew/crew-ledger/internal/config"
	"github.com/fieldcrew/crew-ledger/internal/database"
	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/fieldcrew/crew-ledger/internal/services"
	"github.com/fieldcrew/crew-ledger/pkg/notify"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Locks payroll weeks outside the server process, e.g. after an outage
// skipped the Monday job.
func main() {
	var (
		dbURLFlag string
		week      string
		employee  string
		asOfFlag  string
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.StringVar(&week, "week", "", "lock only the week ending on this Sunday (YYYY-MM-DD)")
	flag.StringVar(&employee, "employee", "", "with -week, lock only this employee")
	flag.StringVar(&asOfFlag, "as-of", "", "lock every week completed before this date (default today)")
	flag.Parse()

	// .env is optional; it keeps the connection string off the command line
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
		MaxTxRetries:       3,
	}, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	weekLocks := services.NewWeekLockService(
		db,
		services.NewAuditService(true, logger),
		services.NewNotificationService(notify.NewLogGateway(logger), logger),
		logger,
		0,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if week != "" {
		req := &models.LockWeekRequest{WeekEndingDate: week}
		if employee != "" {
			req.EmployeeID = &employee
		}
		result, err := weekLocks.LockWeek(ctx, models.SystemActor, req)
		if err != nil {
			log.Fatalf("failed to lock week %s: %v", week, err)
		}
		fmt.Printf("Locked %d entries for week ending %s\n", result.Locked, week)
		return
	}

	asOf := time.Now()
	if asOfFlag != "" {
		asOf, err = models.ParseDate(asOfFlag)
		if err != nil {
			log.Fatalf("invalid -as-of: %v", err)
		}
	}
	locked, err := weekLocks.LockCompletedWeeks(ctx, asOf)
	if err != nil {
		log.Fatalf("failed to lock completed weeks: %v", err)
	}
	fmt.Printf("Locked %d entries in weeks ending before %s\n", locked, models.WeekEndingDate(asOf).Format(models.DateLayout))
}
