// Package setup implements the interactive configuration wizard.
package setup

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/kkdrhn/GhostBroker/config"
)

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

// GeneratedConfigFile is where the wizard writes its result.
const GeneratedConfigFile = "config.gen.yaml"

// RunTUI launches the terminal configuration wizard and writes the resulting
// yaml config to GeneratedConfigFile.
func RunTUI() error {
	var (
		rpcURL         string
		wsRPCURL       string
		chainIDStr     string
		oracleContract string
		marketContract string
		agentContract  string
		tickBlocksStr  string
		blockTimeStr   string
		reasoning      string
		apiURL         string
		model          string
		listenAddr     string
		confirm        bool
	)

	// defaults
	chainIDStr = "10143"
	tickBlocksStr = "2"
	blockTimeStr = "400ms"
	apiURL = "https://openrouter.ai/api/v1/chat/completions"
	model = "deepseek/deepseek-v3.2-exp"
	listenAddr = ":8080"

	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("GHOSTBROKER CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's wire your agents to the chain.\n"))

	fmt.Println(stepStyle.Render("STEP 1: LEDGER"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("RPC URL").
				Description("HTTP endpoint of the chain node").
				Value(&rpcURL).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("rpc url cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Websocket RPC URL").
				Description("Optional, enables live contract event streaming").
				Value(&wsRPCURL),
			huh.NewInput().
				Title("Chain ID").
				Value(&chainIDStr).
				Validate(validateInt),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("GHOSTBROKER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: CONTRACTS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Oracle Contract").
				Description("Address of the price oracle").
				Value(&oracleContract).
				Validate(validateAddress),
			huh.NewInput().
				Title("Market Contract").
				Description("Address accepting postOrder calls").
				Value(&marketContract).
				Validate(validateAddress),
			huh.NewInput().
				Title("Agent Contract").
				Description("Address accepting recordTick calls").
				Value(&agentContract).
				Validate(validateAddress),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("GHOSTBROKER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: TIMING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Tick Blocks").
				Description("Blocks per decision tick (e.g. 2)").
				Value(&tickBlocksStr).
				Validate(validateInt),
			huh.NewInput().
				Title("Block Time").
				Description("Duration string (e.g. 400ms, 1s)").
				Value(&blockTimeStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("GHOSTBROKER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: REASONING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose the reasoning backend").
				Options(
					huh.NewOption("LLM (OpenAI-compatible API)", "llm"),
					huh.NewOption("Rule-based (no API key required)", "rules"),
				).
				Value(&reasoning),
		),
	).Run()
	if err != nil {
		return err
	}

	if reasoning == "llm" {
		fmt.Print("\033[H\033[2J")
		fmt.Println(headerStyle.Render("GHOSTBROKER CONFIG WIZARD"))
		fmt.Println(stepStyle.Render("STEP 5: LLM SETTINGS"))
		fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render(
			"The API key is read from the " + config.EnvLLMAPIKey + " environment variable.\n"))
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("LLM API URL").
					Value(&apiURL),
				huh.NewInput().
					Title("Model Name").
					Value(&model),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("GHOSTBROKER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"RPC: %s\nChain ID: %s\nOracle: %s\nMarket: %s\nAgent: %s\nTick: %s blocks x %s\nReasoning: %s\n",
		rpcURL, chainIDStr, oracleContract, marketContract, agentContract, tickBlocksStr, blockTimeStr, reasoning,
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

	chainID, _ := strconv.ParseInt(chainIDStr, 10, 64)
	tickBlocks, _ := strconv.Atoi(tickBlocksStr)
	blockTime, _ := time.ParseDuration(blockTimeStr)

	cfgTmp := config.ConfigTmp{
		RPCURL:         rpcURL,
		WSRPCURL:       wsRPCURL,
		ChainID:        chainID,
		OracleContract: oracleContract,
		MarketContract: marketContract,
		AgentContract:  agentContract,
		TickBlocks:     tickBlocks,
		BlockTime:      blockTime,
		ListenAddr:     listenAddr,
	}
	if reasoning == "llm" {
		cfgTmp.LLMAPIURL = apiURL
		cfgTmp.LLMModel = model
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(GeneratedConfigFile, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(
		fmt.Sprintf("\nConfiguration saved to %s\nStart with: ghostbroker -config %s", GeneratedConfigFile, GeneratedConfigFile)))
	return nil
}

func validateInt(s string) error {
	if _, err := strconv.Atoi(s); err != nil {
		return fmt.Errorf("must be an integer")
	}
	return nil
}

func validateAddress(s string) error {
	if len(s) != 42 || s[:2] != "0x" {
		return fmt.Errorf("must be a 0x-prefixed 20-byte hex address")
	}
	return nil
}
