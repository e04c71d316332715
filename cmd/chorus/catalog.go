package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mosaicdev/chorus/internal/catalog"
	"github.com/mosaicdev/chorus/internal/config"
	"github.com/mosaicdev/chorus/internal/provider"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List registered roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		db, err := openCatalog(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		roles, err := db.ListRoles(cmd.Context())
		if err != nil {
			return err
		}
		if len(roles) == 0 {
			fmt.Println("no roles registered (run 'chorus init' to seed defaults)")
			return nil
		}
		for _, role := range roles {
			fmt.Printf("%-12s %s\n", role.Slug, role.Description)
		}
		return nil
	},
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Manage registered providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		db, err := openCatalog(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		providers, err := db.ListProviders(cmd.Context())
		if err != nil {
			return err
		}
		if len(providers) == 0 {
			fmt.Println("no providers registered (use 'chorus providers add')")
			return nil
		}
		for _, d := range providers {
			extra := ""
			if d.UseBedrock {
				extra = " [bedrock]"
			}
			fmt.Printf("%-20s %-10s %s%s\n", d.Slug, d.Vendor, d.Model, extra)
		}
		return nil
	},
}

var (
	addVendor    string
	addModel     string
	addName      string
	addAPIKeyEnv string
	addBaseURL   string
	addBedrock   bool
	addAWSRegion string
)

var providersAddCmd = &cobra.Command{
	Use:   "add <slug>",
	Short: "Register a provider",
	Long: `Register a provider the catalog can bind roles to.

Examples:
  chorus providers add claude-sonnet --vendor anthropic --model claude-sonnet-4-5
  chorus providers add gpt4o --vendor openai --model gpt-4o --key-env OPENAI_API_KEY
  chorus providers add bedrock-opus --vendor anthropic --model claude-opus-4-1 --bedrock --region us-west-2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := args[0]
		vendor := provider.Vendor(addVendor)
		if vendor != provider.VendorAnthropic && vendor != provider.VendorOpenAI {
			return fmt.Errorf("unknown vendor %q: expected %s or %s", addVendor, provider.VendorAnthropic, provider.VendorOpenAI)
		}
		if addModel == "" {
			return fmt.Errorf("--model is required")
		}

		name := addName
		if name == "" {
			name = slug
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		db, err := openCatalog(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		desc := provider.Descriptor{
			ID:         uuid.New().String(),
			Slug:       slug,
			Name:       name,
			Vendor:     vendor,
			Model:      addModel,
			APIKeyEnv:  addAPIKeyEnv,
			BaseURL:    addBaseURL,
			UseBedrock: addBedrock,
			AWSRegion:  addAWSRegion,
		}
		if err := db.UpsertProvider(cmd.Context(), desc); err != nil {
			return err
		}
		fmt.Printf("%s registered provider %s (%s %s)\n", color.GreenString("✓"), slug, vendor, addModel)
		return nil
	},
}

var (
	bindProjectID string
	bindPriority  int
)

var bindCmd = &cobra.Command{
	Use:   "bind <role> <provider>",
	Short: "Bind a role to a provider",
	Long: `Bind a role to a registered provider.

Bindings are scoped by project; an empty project id sets the default
binding consulted when a project has none of its own. Higher priority
wins when a role has several bindings.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		roleSlug, providerSlug := args[0], args[1]

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		db, err := openCatalog(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.BindRole(cmd.Context(), bindProjectID, roleSlug, providerSlug, bindPriority); err != nil {
			return err
		}
		scope := bindProjectID
		if scope == "" {
			scope = "default"
		}
		fmt.Printf("%s bound %s -> %s (project: %s)\n", color.GreenString("✓"), roleSlug, providerSlug, scope)
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the catalog and seed default roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		db, err := openCatalog(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := catalog.SeedRoles(cmd.Context(), db); err != nil {
			return err
		}
		fmt.Printf("%s catalog ready at %s\n", color.GreenString("✓"), db.Path())
		fmt.Println("\nNext steps:")
		fmt.Println("  chorus providers add <slug> --vendor anthropic --model <model>")
		fmt.Println("  chorus bind leader <slug>")
		fmt.Println("  chorus run \"your request\"")
		return nil
	},
}

func init() {
	providersAddCmd.Flags().StringVar(&addVendor, "vendor", "anthropic", "Provider vendor: anthropic or openai")
	providersAddCmd.Flags().StringVar(&addModel, "model", "", "Model identifier")
	providersAddCmd.Flags().StringVar(&addName, "name", "", "Display name (defaults to slug)")
	providersAddCmd.Flags().StringVar(&addAPIKeyEnv, "key-env", "", "Environment variable holding the API key")
	providersAddCmd.Flags().StringVar(&addBaseURL, "base-url", "", "API base URL override (openai-compatible endpoints)")
	providersAddCmd.Flags().BoolVar(&addBedrock, "bedrock", false, "Call Anthropic models through AWS Bedrock")
	providersAddCmd.Flags().StringVar(&addAWSRegion, "region", "", "AWS region for Bedrock")
	providersCmd.AddCommand(providersAddCmd)

	bindCmd.Flags().StringVarP(&bindProjectID, "project", "p", "", "Project id (empty sets the default binding)")
	bindCmd.Flags().IntVar(&bindPriority, "priority", 0, "Binding priority (higher wins)")
}
