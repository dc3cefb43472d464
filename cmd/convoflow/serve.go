package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	convoflow "github.com/convoflow/convoflow"
	"github.com/convoflow/convoflow/internal/server"
	"github.com/convoflow/convoflow/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the conversational form HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		chatModel, err := newChatModel(cmd.Context())
		if err != nil {
			return err
		}

		srv := server.New(
			dataStore,
			convoflow.NewOrchestrator(chatModel),
			webhook.NewNotifier(viper.GetString("webhook_url")),
		)

		addr := fmt.Sprintf(":%d", viper.GetInt("port"))
		fmt.Printf("Serving API at http://localhost%s\n", addr)
		return http.ListenAndServe(addr, srv.Router())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().String("webhook-url", "", "endpoint to notify when a form completes")
	viper.SetDefault("port", 8080)
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("webhook_url", serveCmd.Flags().Lookup("webhook-url"))
}
