package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/madao/config"
	"gopkg.in/yaml.v3"
)

// OutputFile is where the wizard writes the generated config.
const OutputFile = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers collected by the wizard.
type answers struct {
	chainID        string
	networkName    string
	rpcURL         string
	madao          string
	smadao         string
	busd           string
	manft          string
	staking        string
	stakingHelper  string
	pool           string
	poolTokenIndex string
	priceTokenID   string
	approvalAmount string
	refreshDelay   string
	account        string
	webAddr        string
}

func defaultAnswers() answers {
	return answers{
		chainID:        "56",
		networkName:    "bsc",
		rpcURL:         "https://bsc-dataseed.binance.org",
		poolTokenIndex: "0",
		priceTokenID:   "madao",
		approvalAmount: "1000000000",
		refreshDelay:   "5s",
		webAddr:        ":8080",
	}
}

// RunTUI launches the terminal configuration wizard.
func RunTUI() error {
	a := defaultAnswers()
	var confirm bool

	// step 1: welcome
	redraw()
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Point madao at your network and contracts.\n"))

	fmt.Println(stepStyle.Render("STEP 1: NETWORK"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Chain").
				Options(
					huh.NewOption("BSC mainnet (56)", "56"),
					huh.NewOption("BSC testnet (97)", "97"),
				).
				Value(&a.chainID),
			huh.NewInput().
				Title("Network name").
				Value(&a.networkName),
			huh.NewInput().
				Title("RPC URL").
				Description("http(s) or ws(s) endpoint").
				Value(&a.rpcURL).
				Validate(validateURL),
		),
	).Run()
	if err != nil {
		return err
	}

	redraw()
	fmt.Println(stepStyle.Render("STEP 2: CONTRACTS"))
	err = huh.NewForm(
		huh.NewGroup(
			addressInput("MADAO token", &a.madao, false),
			addressInput("sMADAO token", &a.smadao, false),
			addressInput("BUSD token", &a.busd, false),
			addressInput("maNFT token", &a.manft, true),
			addressInput("Staking", &a.staking, false),
			addressInput("Staking helper", &a.stakingHelper, false),
		),
	).Run()
	if err != nil {
		return err
	}

	redraw()
	fmt.Println(stepStyle.Render("STEP 3: PRICING"))
	err = huh.NewForm(
		huh.NewGroup(
			addressInput("MADAO/BUSD pool", &a.pool, true),
			huh.NewSelect[string]().
				Title("MADAO position in the pool").
				Options(
					huh.NewOption("token0", "0"),
					huh.NewOption("token1", "1"),
				).
				Value(&a.poolTokenIndex),
			huh.NewInput().
				Title("Price index token id").
				Description("Used when the pool quote is unavailable").
				Value(&a.priceTokenID),
		),
	).Run()
	if err != nil {
		return err
	}

	redraw()
	fmt.Println(stepStyle.Render("STEP 4: ACCOUNT"))
	err = huh.NewForm(
		huh.NewGroup(
			addressInput("Account to watch", &a.account, true),
			huh.NewInput().
				Title("Approval amount").
				Description("Whole MADAO tokens approved for staking").
				Value(&a.approvalAmount).
				Validate(validateAmount),
			huh.NewInput().
				Title("Refresh delay after staking").
				Description("Duration string (e.g. 5s)").
				Value(&a.refreshDelay).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
			huh.NewInput().
				Title("Web address").
				Value(&a.webAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	redraw()
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Network: %s (%s)\nRPC: %s\nStaking: %s\nAccount: %s\n",
		a.networkName, a.chainID, a.rpcURL, a.staking, valueOrNone(a.account),
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	data, err := render(a)
	if err != nil {
		return err
	}

	if err := os.WriteFile(OutputFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", OutputFile)))
	return nil
}

// render builds the yaml document and checks that it loads.
func render(a answers) ([]byte, error) {
	cfgTmp, err := a.toConfigTmp()
	if err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return nil, fmt.Errorf("failed to generate yaml: %w", err)
	}

	if _, err := config.Parse(data); err != nil {
		return nil, fmt.Errorf("generated config is invalid: %w", err)
	}
	return data, nil
}

func (a answers) toConfigTmp() (config.ConfigTmp, error) {
	chainID, err := strconv.ParseInt(a.chainID, 10, 64)
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("invalid chain id %q: %w", a.chainID, err)
	}
	poolTokenIndex, err := strconv.Atoi(a.poolTokenIndex)
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("invalid pool token index %q: %w", a.poolTokenIndex, err)
	}
	refreshDelay, err := time.ParseDuration(a.refreshDelay)
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("invalid refresh delay %q: %w", a.refreshDelay, err)
	}

	return config.ConfigTmp{
		DefaultNetwork: chainID,
		Networks: []config.NetworkTmp{{
			ChainID: chainID,
			Name:    a.networkName,
			RPCURLs: []string{strings.TrimSpace(a.rpcURL)},
			Addresses: config.AddressesTmp{
				Madao:         a.madao,
				SMadao:        a.smadao,
				Busd:          a.busd,
				MaNFT:         a.manft,
				Staking:       a.staking,
				StakingHelper: a.stakingHelper,
				Pool:          a.pool,
			},
			PoolTokenIndex: poolTokenIndex,
		}},
		PriceIndex: config.PriceIndexTmp{TokenID: a.priceTokenID},
		Staking: config.StakingTmp{
			ApprovalAmount: a.approvalAmount,
			RefreshDelay:   refreshDelay,
		},
		Web:     config.WebTmp{Addr: a.webAddr},
		Account: a.account,
	}, nil
}

func addressInput(title string, value *string, optional bool) *huh.Input {
	description := "0x-prefixed contract address"
	if optional {
		description = "Optional, leave empty to skip"
	}
	return huh.NewInput().
		Title(title).
		Description(description).
		Value(value).
		Validate(func(s string) error {
			return validateAddress(s, optional)
		})
}

func validateAddress(s string, optional bool) error {
	s = strings.TrimSpace(s)
	if s == "" {
		if optional {
			return nil
		}
		return fmt.Errorf("address cannot be empty")
	}
	if !common.IsHexAddress(s) {
		return fmt.Errorf("not a hex address")
	}
	return nil
}

func validateURL(s string) error {
	for _, scheme := range []string{"http://", "https://", "ws://", "wss://"} {
		if strings.HasPrefix(s, scheme) {
			return nil
		}
	}
	return fmt.Errorf("must start with http(s):// or ws(s)://")
}

func validateAmount(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func valueOrNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func redraw() {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("MADAO CONFIG WIZARD"))
}
