package main

import (
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/obsfarm/farmd/common"
	"github.com/obsfarm/farmd/common/db"
	"github.com/obsfarm/farmd/common/errors"
	"github.com/obsfarm/farmd/common/log"
	"github.com/obsfarm/farmd/farm"
	"github.com/obsfarm/farmd/server"
	"github.com/obsfarm/farmd/token"
)

var version = "unknown"

type FarmdConfig struct {
	DBType string `mapstructure:"db_type"`
	DBDir  string `mapstructure:"db_dir"`
	DBName string `mapstructure:"db_name"`

	RPCAddr string `mapstructure:"rpc_addr"`

	AssetID      string `mapstructure:"asset_id"`
	AdminAccount string `mapstructure:"admin_account"`
	RewardBudget string `mapstructure:"reward_budget"`

	LogLevel     string `mapstructure:"log_level"`
	ConsoleLevel string `mapstructure:"console_level"`
	LogFilename  string `mapstructure:"log_filename"`

	// Mint provisions token balances at start, "account=amount" each.
	Mint []string `mapstructure:"mint"`
	// Fund issues reward liquidity into ledger custody at start.
	Fund string `mapstructure:"fund"`
}

func parseBudget(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.IllegalArgumentError.Errorf("InvalidBudget(value=%q)", s)
	}
	return v, nil
}

func setupLogger(cfg *FarmdConfig) (log.Logger, error) {
	logger := log.New()
	log.SetGlobalLogger(logger)
	if lv, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return nil, errors.IllegalArgumentError.Wrapf(err, "InvalidLogLevel(value=%s)", cfg.LogLevel)
	} else {
		logger.SetLevel(lv)
	}
	if lv, err := log.ParseLevel(cfg.ConsoleLevel); err != nil {
		return nil, errors.IllegalArgumentError.Wrapf(err, "InvalidConsoleLevel(value=%s)", cfg.ConsoleLevel)
	} else {
		logger.SetConsoleLevel(lv)
	}
	if cfg.LogFilename != "" {
		writer, err := log.NewWriter(&log.WriterConfig{
			Filename: cfg.LogFilename,
			MaxSize:  100,
			MaxAge:   28,
			Compress: true,
		})
		if err != nil {
			return nil, err
		}
		if err := logger.SetFileWriter(writer); err != nil {
			return nil, err
		}
	}
	return logger, nil
}

func provision(vault *token.Vault, assetID string, mints []string) error {
	for _, m := range mints {
		kv := strings.SplitN(m, "=", 2)
		if len(kv) != 2 {
			return errors.IllegalArgumentError.Errorf("InvalidMint(value=%q)", m)
		}
		amount, ok := new(big.Int).SetString(kv[1], 10)
		if !ok || amount.Sign() <= 0 {
			return errors.IllegalArgumentError.Errorf("InvalidMintAmount(value=%q)", kv[1])
		}
		if err := vault.Mint(assetID, kv[0], amount); err != nil {
			return err
		}
	}
	return nil
}

func start(cfg *FarmdConfig) error {
	logger, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	budget, err := parseBudget(cfg.RewardBudget)
	if err != nil {
		return err
	}

	dbase, err := db.Open(cfg.DBDir, cfg.DBType, cfg.DBName)
	if err != nil {
		return err
	}
	defer dbase.Close()

	vault, err := token.NewVault(dbase, logger)
	if err != nil {
		return err
	}
	if err := provision(vault, cfg.AssetID, cfg.Mint); err != nil {
		return err
	}
	if cfg.Fund != "" {
		amount, ok := new(big.Int).SetString(cfg.Fund, 10)
		if !ok || amount.Sign() <= 0 {
			return errors.IllegalArgumentError.Errorf("InvalidFund(value=%q)", cfg.Fund)
		}
		if err := vault.FundCustody(cfg.AssetID, amount); err != nil {
			return err
		}
	}

	f, err := farm.New(
		farm.Config{
			AssetID:      cfg.AssetID,
			AdminAccount: cfg.AdminAccount,
			RewardBudget: budget,
		},
		dbase,
		vault,
		farm.NewStaticAuthorizer(cfg.AdminAccount),
		&common.GoTimeClock{},
		logger,
	)
	if err != nil {
		return err
	}

	srv := server.NewManager(cfg.RPCAddr, f, logger)

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sc
		logger.Infof("%s signal received, shutting down", s)
		if err := srv.Stop(); err != nil {
			logger.Errorf("fail to stop the server err=%+v", err)
		}
	}()

	logger.Infof("farmd %s asset=%s admin=%s", version, cfg.AssetID, cfg.AdminAccount)
	return srv.Start()
}

func registerStartFlags(flags *pflag.FlagSet) {
	flags.String("db_type", string(db.GoLevelDBBackend), "Database backend")
	flags.String("db_dir", ".farmd", "Database directory")
	flags.String("db_name", "ledger", "Database name")
	flags.String("rpc_addr", ":9080", "Listen ip-port of the API server")
	flags.String("asset_id", "obs", "Identifier of the tracked asset")
	flags.String("admin_account", "", "Administrator account, receives staking fees")
	flags.String("reward_budget", "0", "Lifetime reward budget, informational")
	flags.String("log_level", "debug", "Global log level (trace,debug,info,warn,error,fatal,panic)")
	flags.String("console_level", "info", "Console log level")
	flags.String("log_filename", "", "Log file name, rotated")
	flags.StringSlice("mint", nil, "Mint token balance at start (account=amount)")
	flags.String("fund", "", "Reward liquidity issued into ledger custody at start")
}

func main() {
	cfg := &FarmdConfig{}
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "farmd",
		Short: "Time-weighted reward accrual ledger daemon",
	}
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print farmd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("farmd version", version)
		},
	})

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the ledger daemon",
	}
	saveCmd := &cobra.Command{
		Use:   "save CONFIG_FILE",
		Short: "Save the resolved configuration to a file",
		Args:  cobra.ExactArgs(1),
	}
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(newRPCCmd())

	for _, cmd := range []*cobra.Command{startCmd, saveCmd} {
		flags := cmd.Flags()
		flags.StringVar(&configFile, "config", "", "Configuration file")
		registerStartFlags(flags)

		v := viper.New()
		v.SetEnvPrefix("farmd")
		v.AutomaticEnv()
		if err := v.BindPFlags(flags); err != nil {
			log.GlobalLogger().Fatalf("fail to bind flags err=%+v", err)
		}

		cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				v.SetConfigFile(configFile)
				if err := v.ReadInConfig(); err != nil {
					return errors.IllegalArgumentError.Wrapf(err, "FailToReadConfig(file=%s)", configFile)
				}
			}
			if err := v.Unmarshal(cfg); err != nil {
				return errors.IllegalArgumentError.Wrap(err, "FailToParseConfig")
			}
			return nil
		}
		if cmd == startCmd {
			cmd.RunE = func(cmd *cobra.Command, args []string) error {
				if cfg.AdminAccount == "" {
					return errors.IllegalArgumentError.New("admin_account is required")
				}
				return start(cfg)
			}
		} else {
			cmd.RunE = func(cmd *cobra.Command, args []string) error {
				return v.WriteConfigAs(args[0])
			}
		}
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
