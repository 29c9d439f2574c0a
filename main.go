package main

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	colorable "github.com/mattn/go-colorable"

	"coffre/config"
	"coffre/logger"
)

var version = "0.1.0"

func main() {
	parseCli()

	if versionCmd.Used {
		fmt.Println("coffre", version)
		return
	}
	if genCmd.Used {
		// gen needs no store and no prompts
		u := &uiContext{out: colorable.NewColorableStdout(), cfg: config.Default()}
		if err := u.cmdGen(); err != nil {
			fmt.Printf("error occurred: %+v\n", err)
			os.Exit(1)
		}
		return
	}

	cfgPath := flagConfig
	if len(cfgPath) == 0 {
		cfgPath = config.DefaultPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("error occurred: %+v\n", err)
		os.Exit(1)
	}

	if flagNoColor || cfg.NoColor {
		color.Disable()
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("error occurred: %+v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if len(flagFile) == 0 {
		flagFile = cfg.ArchivePath
	}

	ctx := &uiContext{
		out: colorable.NewColorableStdout(),
		cfg: cfg,
		log: log,
	}

	if err := ctx.setupStore(); err != nil {
		fmt.Printf("error occurred: %+v\n", err)
		os.Exit(1)
	}
	if err := setupLineEditor(ctx); err != nil {
		fmt.Printf("error occurred initializing ui: %+v\n", err)
		os.Exit(1)
	}
	defer ctx.in.Close()

	if err := run(ctx); err != nil {
		if err == ErrInterrupt || err == ErrEnd {
			fmt.Println("exiting")
			os.Exit(1)
		}
		errColor.Printf("error occurred: %+v\n", err)
		os.Exit(1)
	}
}

func run(u *uiContext) error {
	// create builds a new store; everything else opens an existing one.
	if createCmd.Used {
		return u.cmdCreate()
	}

	if err := u.openStore(); err != nil {
		return err
	}
	defer func() {
		if err := u.mgr.Close(false); err != nil && u.mgr.IsOpen() {
			// Mutating commands save themselves; anything still dirty
			// here is access-time bookkeeping not worth failing over.
			u.mgr.Close(true)
		}
	}()

	switch {
	case addCmd.Used:
		return u.cmdAdd(argTitle)
	case lsCmd.Used:
		return u.cmdList(argQuery)
	case showCmd.Used:
		return u.cmdShow(argQuery, flagSensitive)
	case searchCmd.Used:
		return u.cmdSearch(argQuery)
	case cpCmd.Used:
		return u.cmdCopy(argQuery, argField)
	case totpCmd.Used:
		return u.cmdTotp(argQuery)
	case rmCmd.Used:
		return u.cmdRemove(argQuery, flagForce)
	case passwdCmd.Used:
		return u.cmdPasswd()
	case exportCmd.Used:
		return u.cmdExport(argFile)
	case importCmd.Used:
		return u.cmdImport(argFile)
	default:
		return u.cmdList("")
	}
}
