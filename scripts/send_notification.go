package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type gatewayConfig struct {
	Gateway struct {
		Addr         string `mapstructure:"addr"`
		SharedSecret string `mapstructure:"shared_secret"`
	} `mapstructure:"gateway"`
}

type notification struct {
	Value []notificationItem `json:"value"`
}

type notificationItem struct {
	ChangeType string               `json:"changeType"`
	Resource   notificationResource `json:"resource"`
}

type notificationResource struct {
	Call struct {
		ID string `json:"id"`
	} `json:"call"`
}

func main() {
	configPath := flag.String("config", "examples/interpreter/config.local.yaml", "")
	callID := flag.String("call", "", "")
	endpoint := flag.String("url", "", "gateway calls endpoint, e.g. http://localhost:3978/api/calls")
	secret := flag.String("secret", "", "shared secret for X-Gateway-Secret")
	changeType := flag.String("change", "created", "notification change type")
	flag.Parse()
	if *callID == "" {
		fmt.Println("usage: send_notification -call=<id> [-url=...] [-secret=...] [-config=...]")
		os.Exit(1)
	}
	url := *endpoint
	token := *secret
	if url == "" || token == "" {
		cfg, err := loadGatewayConfig(*configPath)
		if err != nil {
			fmt.Println("config error:", err)
			os.Exit(1)
		}
		if url == "" {
			url = callsURL(cfg.Gateway.Addr)
		}
		if token == "" {
			token = os.ExpandEnv(cfg.Gateway.SharedSecret)
		}
	}

	var item notificationItem
	item.ChangeType = *changeType
	item.Resource.Call.ID = *callID
	body, err := json.Marshal(notification{Value: []notificationItem{item}})
	if err != nil {
		fmt.Println("encode error:", err)
		os.Exit(1)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		fmt.Println("request error:", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Gateway-Secret", token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("send error:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	reply, _ := io.ReadAll(resp.Body)
	fmt.Println("status:", resp.StatusCode)
	if len(reply) > 0 {
		fmt.Println(strings.TrimSpace(string(reply)))
	}
}

func loadGatewayConfig(path string) (gatewayConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return gatewayConfig{}, err
	}
	var cfg gatewayConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return gatewayConfig{}, err
	}
	return cfg, nil
}

func callsURL(addr string) string {
	if addr == "" {
		addr = ":3978"
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/api/calls"
}
