// Command diary is the command-line client of the movie diary service.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "diary"
	app.Usage = "keeps a personal movie diary"
	app.Version = "0.1.0"
	app.Flags = registerClientFlags([]cli.Flag{})
	app.Before = func(c *cli.Context) error {
		if c.GlobalBool(debugFlag) {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	}
	app.Commands = []cli.Command{
		makeRegisterCMD(),
		makeLoginCMD(),
		makeLogoutCMD(),
		makeWhoamiCMD(),
		makeListCMD(),
		makeAddCMD(),
		makeEditCMD(),
		makeRemoveCMD(),
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
