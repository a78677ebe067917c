package config

import (
	"flag"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/madao/internal/domain"
)

// Command what the binary was asked to do.
type Command string

const (
	CommandServe   Command = "serve"
	CommandSetup   Command = "setup"
	CommandApprove Command = "approve"
	CommandStake   Command = "stake"
	CommandUnstake Command = "unstake"
)

// Flags parsed command line.
type Flags struct {
	ConfigPath string
	Command    Command
	Debug      bool

	// Approve is set for CommandApprove.
	Approve domain.ApprovalToken

	// Amount is set for CommandStake and CommandUnstake.
	Amount string
}

// ParseFlags parses args (without the program name). Exactly one command may be given;
// serving is the default.
func ParseFlags(args []string) (Flags, error) {
	fs := flag.NewFlagSet("madao", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to yaml config")
	setup := fs.Bool("setup", false, "run the interactive config wizard")
	serve := fs.Bool("serve", false, "serve state over http and refresh periodically")
	approve := fs.String("approve", "", "approve staking allowance for token: madao or smadao")
	stakeAmount := fs.String("stake", "", "stake this amount of MADAO, example: 1.5")
	unstakeAmount := fs.String("unstake", "", "unstake this amount of sMADAO, example: 1.5")
	debug := fs.Bool("debug", false, "development logging")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	f := Flags{ConfigPath: *configPath, Debug: *debug, Command: CommandServe}

	var chosen []Command
	if *setup {
		chosen = append(chosen, CommandSetup)
	}
	if *serve {
		chosen = append(chosen, CommandServe)
	}
	if *approve != "" {
		token, err := domain.ParseApprovalToken(*approve)
		if err != nil {
			return Flags{}, errors.Wrap(err, "invalid --approve provided")
		}
		f.Approve = token
		chosen = append(chosen, CommandApprove)
	}
	if *stakeAmount != "" {
		f.Amount = *stakeAmount
		chosen = append(chosen, CommandStake)
	}
	if *unstakeAmount != "" {
		f.Amount = *unstakeAmount
		chosen = append(chosen, CommandUnstake)
	}

	switch len(chosen) {
	case 0:
	case 1:
		f.Command = chosen[0]
	default:
		return Flags{}, errors.Errorf("only one of --setup, --serve, --approve, --stake, --unstake may be given, got %v", chosen)
	}
	return f, nil
}

// StakeAction maps a stake command to its action.
func (f Flags) StakeAction() (domain.StakeAction, bool) {
	switch f.Command {
	case CommandStake:
		return domain.ActionStake, true
	case CommandUnstake:
		return domain.ActionUnstake, true
	}
	return "", false
}
