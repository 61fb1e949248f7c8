package cmd

import (
	"context"
	"fmt"

	"github.com/jmehdipour/customers-api/internal/logger"
	"github.com/jmehdipour/customers-api/internal/model"
	"github.com/jmehdipour/customers-api/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedReset bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the configured store with demo customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		b, err := openBackend(cfg)
		if err != nil {
			return err
		}
		defer b.close()

		n, err := seedCustomers(cmd.Context(), b.customers, seedReset)
		if err != nil {
			return err
		}
		logger.Log.Info("seed completed", zap.Int("customers", n))
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "delete existing customers first")
}

var demoCustomers = []model.Customer{
	{
		FirstName: "John", LastName: "Doe", Email: "fake1@email.com", Subscribed: true,
		Address: model.Address{Address1: "123 Main St", Address2: "1B", City: "New York", Province: "NY", Country: "USA", Zip: "12310"},
	},
	{
		FirstName: "Sarah", LastName: "Sally", Email: "fake2@email.com", Subscribed: true,
		Address: model.Address{Address1: "4 Queen St", Address2: "", City: "Toronto", Province: "ON", Country: "Canada", Zip: "M5H"},
	},
	{
		FirstName: "Jim", LastName: "Jones", Email: "fake3@email.com", Subscribed: false,
		Address: model.Address{Address1: "8 Rue Oberkampf", Address2: "3", City: "Paris", Province: "IDF", Country: "France", Zip: "75011"},
	},
}

// seedCustomers inserts the demo customers whose email is not present yet.
func seedCustomers(ctx context.Context, repo repository.CustomersRepository, reset bool) (int, error) {
	if reset {
		if _, err := repo.DeleteAll(ctx); err != nil {
			return 0, fmt.Errorf("reset customers: %w", err)
		}
	}

	inserted := 0
	for _, c := range demoCustomers {
		existing, err := repo.List(ctx, model.Filter{Email: c.Email})
		if err != nil {
			return inserted, fmt.Errorf("lookup %s: %w", c.Email, err)
		}
		if len(existing) > 0 {
			continue
		}
		c := c
		if err := repo.Create(ctx, &c); err != nil {
			return inserted, fmt.Errorf("insert customer %q: %w", c.Email, err)
		}
		inserted++
	}
	return inserted, nil
}
