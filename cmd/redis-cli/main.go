package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	redis "github.com/atlas-aero/rt-embedded-redis"
	"github.com/atlas-aero/rt-embedded-redis/internal/env"
)

var (
	addr     string
	username string
	password string
	resp3    bool
	timeout  time.Duration
)

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&addr, "addr", "a", "", "Server address (overrides REDIS_ADDR)")
	flags.StringVar(&username, "user", "", "ACL username")
	flags.StringVar(&password, "pass", "", "Password")
	flags.BoolVar(&resp3, "resp3", false, "Negotiate protocol version 3 via HELLO")
	flags.DurationVar(&timeout, "timeout", 5*time.Second, "Connect and reply timeout")
}

var rootCmd = &cobra.Command{
	Use:   "redis-cli",
	Short: "Interactive prompt speaking the Redis wire protocol",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := env.LoadConfig(cmd.Context())
		if err != nil {
			return err
		}
		log, err := env.MakeLogger(conf.Debug)
		if err != nil {
			return err
		}
		defer log.Sync()

		if addr == "" {
			addr = conf.Addr
		}
		if username == "" {
			username = conf.Username
		}
		if password == "" {
			password = conf.Password
		}
		if conf.RESP3 {
			resp3 = true
		}

		handler := redis.NewHandlerResp2(addr)
		if resp3 {
			handler = redis.NewHandlerResp3(addr)
		}
		handler.WithTimeout(timeout).WithLogger(log)
		if password != "" {
			handler.WithAuth(redis.Credentials{Username: username, Password: password})
		}

		client, err := handler.Connect(&redis.NetStack{}, redis.SystemClock)
		if err != nil {
			return err
		}
		defer handler.Disconnect()

		log.Info("connected", zap.String("addr", addr), zap.Bool("resp3", resp3))
		return repl(client)
	},
}

func repl(client *redis.Client) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		words := strings.Fields(scanner.Text())
		if len(words) == 0 {
			continue
		}
		if strings.EqualFold(words[0], "quit") || strings.EqualFold(words[0], "exit") {
			return nil
		}
		if strings.EqualFold(words[0], "subscribe") && len(words) == 2 {
			if err := tail(client, words[1]); err != nil {
				fmt.Println("(error)", err)
			}
			continue
		}

		builder := redis.NewCommand(strings.ToUpper(words[0]))
		for _, arg := range words[1:] {
			builder.ArgString(arg)
		}
		fut, err := redis.Send(client, redis.RawCommand{Builder: builder})
		if err != nil {
			fmt.Println("(error)", err)
			continue
		}
		frame, err := fut.Wait()
		if err != nil {
			fmt.Println("(error)", err)
			continue
		}
		printFrame(frame.Text())
	}
}

// tail prints messages for one channel until the subscription fails.
func tail(client *redis.Client, channel string) error {
	sub, err := client.Subscribe(channel)
	if err != nil {
		return err
	}
	defer sub.Close()

	fmt.Printf("subscribed to %q, ctrl-c to stop\n", channel)
	for {
		msg, err := sub.Receive()
		if err != nil {
			return err
		}
		if msg != nil {
			fmt.Printf("[%s] %s\n", msg.Channel, msg.Payload)
		}
	}
}

func printFrame(text string) {
	if text == "" {
		fmt.Println("(nil)")
		return
	}
	fmt.Println(text)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
