package app

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lwnode/lwnode/pkgs/cloudrelay"
	"github.com/lwnode/lwnode/pkgs/config"
	"github.com/lwnode/lwnode/pkgs/keystore"
	"github.com/lwnode/lwnode/pkgs/node"
	"github.com/lwnode/lwnode/pkgs/output"
	"github.com/lwnode/lwnode/pkgs/simtransport"
)

// NodeApp is the controller level: everything needed to perform one CLI
// action against a lwnode.Node, talking to the user only via P.
type NodeApp struct {
	Config *config.Configuration
	Node   *node.Node

	xport *simtransport.Transport

	Debug bool
	Color bool
	P     output.Printer
}

// Initialize reads configuration files and sets up logging. It must run
// before any action method.
func (app *NodeApp) Initialize() error {
	if app.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if app.Color {
		app.P = output.ColorPrinter{}
	}

	logrus.Debug("Reading configuration files")
	cfg, err := config.NewConfig()
	app.Config = cfg
	if err != nil {
		return fmt.Errorf("cannot initialize app: %s", err)
	}
	return nil
}

// okf reports a successful action result, highlighting it in green when
// the configured Printer supports it.
func (app *NodeApp) okf(format string, a ...any) {
	if rp, ok := app.P.(output.ResultPrinter); ok {
		rp.Okf(format, a...)
		return
	}
	app.P.Printf(format, a...)
}

// errf reports a failed action result, highlighting it in red when the
// configured Printer supports it.
func (app *NodeApp) errf(format string, a ...any) {
	if rp, ok := app.P.(output.ResultPrinter); ok {
		rp.Errorf(format, a...)
		return
	}
	app.P.Printf(format, a...)
}

func (app *NodeApp) connect() error {
	if app.Node != nil {
		return nil
	}
	if app.Config.Transport.Kind != "sim" {
		return fmt.Errorf("transport kind %q is not available in this build; use the simulator (see cmd/lwnode-sim)", app.Config.Transport.Kind)
	}

	addr := fmt.Sprintf("%s:%d", app.Config.Transport.Address, app.Config.Transport.Port)
	xport, err := simtransport.Dial(addr)
	if err != nil {
		return fmt.Errorf("cannot connect to module: %w", err)
	}
	app.xport = xport
	app.Node = node.New(xport)
	return nil
}

// CleanUp releases the transport connection, mirroring the command
// station's CleanUp contract.
func (app *NodeApp) CleanUp() {
	if app.xport != nil {
		_ = app.xport.Close()
	}
}

// ProvisionAction applies every credential and radio setting present in the
// staged profile, in the order Begin expects to find them cached.
func (app *NodeApp) ProvisionAction() error {
	if err := app.connect(); err != nil {
		return err
	}
	p := app.Config.Profile

	switch strings.ToUpper(p.JoinMode) {
	case "ABP":
		app.Node.ConfigureABP()
	default:
		app.Node.ConfigureOTAA()
	}

	if region, ok := parseRegion(p.Region); ok {
		if err := app.Node.SetRegion(region); err != nil {
			return err
		}
	}
	if p.AppEUI != "" {
		if err := app.Node.SetAppEUI(p.AppEUI); err != nil {
			return err
		}
	}
	if p.AppKey != "" {
		if err := app.Node.SetAppKey(p.AppKey); err != nil {
			return err
		}
	}
	if p.NwkSKey != "" {
		if err := app.Node.SetNwkSKey(p.NwkSKey); err != nil {
			return err
		}
	}
	if p.AppSKey != "" {
		if err := app.Node.SetAppSKey(p.AppSKey); err != nil {
			return err
		}
	}
	if p.DevAddr != "" {
		addr, err := strconv.ParseUint(p.DevAddr, 16, 32)
		if err != nil {
			return fmt.Errorf("invalid dev_addr %q: %w", p.DevAddr, err)
		}
		if err := app.Node.SetDevAddr(uint32(addr)); err != nil {
			return err
		}
	}

	app.P.Printf("provisioned\n")
	return nil
}

// BeginAction runs the bring-up sequence.
func (app *NodeApp) BeginAction() error {
	if err := app.connect(); err != nil {
		return err
	}
	if err := app.Node.Begin(); err != nil {
		return err
	}
	app.P.Printf("ready\n")
	return nil
}

// JoinAction requests a network join and reports the result.
func (app *NodeApp) JoinAction() error {
	if err := app.connect(); err != nil {
		return err
	}
	txID := uuid.NewString()
	logrus.Debugf("lwnode: join transaction %s", txID)
	if err := app.Node.Join(); err != nil {
		app.errf("join failed: %s\n", err)
		return err
	}
	app.okf("join accepted\n")
	return nil
}

// StatusAction reports the node's join state and last downlink metrics.
func (app *NodeApp) StatusAction() error {
	if err := app.connect(); err != nil {
		return err
	}
	joined, err := app.Node.IsJoined()
	if err != nil {
		app.errf("status failed: %s\n", err)
		return err
	}
	statusLine := fmt.Sprintf("state=%s joined=%t last_rssi=%d last_snr=%d\n",
		app.Node.State(), joined, app.Node.LastRSSI(), app.Node.LastSNR())
	if joined {
		app.okf("%s", statusLine)
	} else {
		app.P.Printf("%s", statusLine)
	}
	return nil
}

// SendAction hex-decodes payloadHex and transmits it.
func (app *NodeApp) SendAction(payloadHex string) error {
	if err := app.connect(); err != nil {
		return err
	}
	data, err := hex.DecodeString(strings.TrimSpace(payloadHex))
	if err != nil {
		return fmt.Errorf("invalid hex payload: %w", err)
	}
	if err := app.Node.SendBytes(data); err != nil {
		app.errf("send failed: %s\n", err)
		return err
	}
	app.okf("sent %d bytes\n", len(data))
	return nil
}

// PollAction opens a receive window for the given duration, printing every
// decoded downlink as it arrives and, if a cloud relay is configured,
// forwarding it there too.
func (app *NodeApp) PollAction(window time.Duration) error {
	if err := app.connect(); err != nil {
		return err
	}

	relay, err := cloudrelay.New(app.Config.CloudRelay.QueueURL, app.Config.CloudRelay.TableURL, app.Config.CloudRelay.ProfileBlobURL)
	if err != nil {
		return err
	}

	app.Node.SetReceiveHandler(func(payload []byte, rssi, snr int8) {
		app.P.Printf("downlink % X rssi=%d snr=%d\n", payload, rssi, snr)
		if pushErr := relay.PushFrame(context.Background(), cloudrelay.Frame{
			Payload:   payload,
			RSSI:      rssi,
			SNR:       snr,
			DecodedAt: time.Now(),
		}); pushErr != nil {
			logrus.Debugf("lwnode: cloud relay push failed: %v", pushErr)
		}
	})
	return app.Node.SleepMS(uint32(window.Milliseconds()))
}

// ExportProfileAction seals the current node.json profile (rendered as
// YAML first, so the unsealed form stays human-diffable) to outPath using
// the keystore keypair at keyPath.
func (app *NodeApp) ExportProfileAction(keyPath, outPath string) error {
	store, err := keystore.Open(keyPath)
	if err != nil {
		return err
	}
	yamlBytes, err := config.MarshalProfileYAML(app.Config.Profile)
	if err != nil {
		return err
	}
	if err := store.SealToFile(outPath, yamlBytes); err != nil {
		return err
	}
	app.P.Printf("sealed profile written to %s\n", outPath)
	return nil
}

// ImportProfileAction unseals a profile staged at sealedPath and returns
// its YAML rendering.
func (app *NodeApp) ImportProfileAction(keyPath, sealedPath string) ([]byte, error) {
	store, err := keystore.Open(keyPath)
	if err != nil {
		return nil, err
	}
	yamlBytes, err := store.UnsealFromFile(sealedPath)
	if err != nil {
		return nil, err
	}
	// Round-trip through Profile to validate shape before handing it back.
	if _, err := config.UnmarshalProfileYAML(yamlBytes); err != nil {
		return nil, err
	}
	return yamlBytes, nil
}

func parseRegion(s string) (node.Region, bool) {
	switch strings.ToUpper(s) {
	case "EU868":
		return node.EU868, true
	case "US915":
		return node.US915, true
	case "CN470":
		return node.CN470, true
	default:
		return 0, false
	}
}
