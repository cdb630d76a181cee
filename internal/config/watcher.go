package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"gopkg.in/yaml.v3"
)

// StartWatch 监听配置中心变更，变更生效后回调 onChange(old, new)
// 仅在配置了 Nacos 时启用；本地文件配置不支持热更新
func StartWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	if strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR")) != "" {
		return startNacosWatch(ctx, onChange)
	}

	fmt.Println("[Config]  Nacos 未配置，跳过配置监听")
	return nil
}

// nacosWatchParams 从环境变量收集监听所需参数
type nacosWatchParams struct {
	serverAddr string
	dataID     string
	namespace  string
	group      string
	username   string
	password   string
	timeoutMS  int
}

func readNacosWatchParams() (*nacosWatchParams, error) {
	p := &nacosWatchParams{
		serverAddr: strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR")),
		dataID:     strings.TrimSpace(os.Getenv("NACOS_DATA_ID")),
		namespace:  strings.TrimSpace(os.Getenv("NACOS_NAMESPACE")),
		group:      strings.TrimSpace(os.Getenv("NACOS_GROUP")),
		username:   strings.TrimSpace(os.Getenv("NACOS_USERNAME")),
		password:   strings.TrimSpace(os.Getenv("NACOS_PASSWORD")),
		timeoutMS:  5000,
	}
	if p.serverAddr == "" {
		return nil, errors.New("NACOS_SERVER_ADDR not set")
	}
	if p.dataID == "" {
		return nil, errors.New("NACOS_DATA_ID not set")
	}
	if p.namespace == "" {
		p.namespace = "public"
	}
	if p.group == "" {
		p.group = "DEFAULT_GROUP"
	}
	if s := strings.TrimSpace(os.Getenv("NACOS_TIMEOUT_MS")); s != "" {
		if t, err := strconv.Atoi(s); err == nil && t > 0 {
			p.timeoutMS = t
		}
	}
	return p, nil
}

func parseServerConfigs(serverAddr string) ([]constant.ServerConfig, error) {
	var out []constant.ServerConfig
	for _, addr := range strings.Split(serverAddr, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		parts := strings.Split(addr, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid NACOS_SERVER_ADDR format: %s", addr)
		}
		port, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid port in NACOS_SERVER_ADDR: %s", parts[1])
		}
		out = append(out, constant.ServerConfig{IpAddr: parts[0], Port: port})
	}
	if len(out) == 0 {
		return nil, errors.New("no valid server address in NACOS_SERVER_ADDR")
	}
	return out, nil
}

// startNacosWatch 启动 Nacos 配置监听
func startNacosWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	p, err := readNacosWatchParams()
	if err != nil {
		return err
	}
	serverConfigs, err := parseServerConfigs(p.serverAddr)
	if err != nil {
		return err
	}

	clientConfig := constant.ClientConfig{
		NamespaceId:         p.namespace,
		TimeoutMs:           uint64(p.timeoutMS),
		NotLoadCacheAtStart: true,
		LogDir:              "/tmp/nacos/log",
		CacheDir:            "/tmp/nacos/cache",
		LogLevel:            "warn",
	}
	if p.username != "" && p.password != "" {
		clientConfig.Username = p.username
		clientConfig.Password = p.password
	}

	configClient, err := clients.NewConfigClient(
		vo.NacosClientParam{
			ClientConfig:  &clientConfig,
			ServerConfigs: serverConfigs,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create nacos config client for watch: %w", err)
	}
	nacosConfigClient = configClient

	err = configClient.ListenConfig(vo.ConfigParam{
		DataId: p.dataID,
		Group:  p.group,
		OnChange: func(namespace, group, dataID, data string) {
			fmt.Printf("[Config] 📡 Nacos 配置变更: namespace=%s, group=%s, dataId=%s\n",
				namespace, group, dataID)

			newCfg, err := parseConfigData(dataID, data)
			if err != nil {
				fmt.Printf("[Config]  解析 Nacos 配置失败: error=%v\n", err)
				return
			}

			oldCfg := GetCurrent()
			pinConnectionConfig(oldCfg, newCfg)
			SetCurrent(newCfg)

			if oldCfg != nil {
				logSettlementConfigDiff(oldCfg, newCfg)
			}
			if onChange != nil {
				onChange(oldCfg, newCfg)
			}

			fmt.Println("[Config]  Nacos 配置已更新")
		},
	})
	if err != nil {
		return fmt.Errorf("failed to listen nacos config: %w", err)
	}

	fmt.Printf("[Config]  Nacos 配置监听已启动: server=%s, dataId=%s, namespace=%s, group=%s\n",
		p.serverAddr, p.dataID, p.namespace, p.group)

	return nil
}

func parseConfigData(dataID, data string) (*Config, error) {
	var cfg Config
	switch filepath.Ext(dataID) {
	case ".json":
		if err := json.Unmarshal([]byte(data), &cfg); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
			return nil, err
		}
	default:
		// 默认按 YAML 解析，失败再尝试 JSON
		if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
			if jerr := json.Unmarshal([]byte(data), &cfg); jerr != nil {
				return nil, err
			}
		}
	}
	return &cfg, nil
}

// pinConnectionConfig 连接类配置不支持热切换：
// MySQL / Redis / MQ 连接在进程启动时建立，变更这些字段需要重启生效，
// 热更新时沿用旧值以免快照与实际连接不一致
func pinConnectionConfig(oldCfg, newCfg *Config) {
	if oldCfg == nil {
		return
	}
	if newCfg.Database.DSN != oldCfg.Database.DSN {
		fmt.Println("[Config]  database.dsn 变更需重启生效，热更新忽略该字段")
		newCfg.Database = oldCfg.Database
	}
	if newCfg.Redis.Addr != oldCfg.Redis.Addr {
		fmt.Println("[Config]  redis.addr 变更需重启生效，热更新忽略该字段")
		newCfg.Redis = oldCfg.Redis
	}
	if newCfg.RocketMQ.NameServer != oldCfg.RocketMQ.NameServer {
		fmt.Println("[Config]  rocketmq.name_server 变更需重启生效，热更新忽略该字段")
		newCfg.RocketMQ = oldCfg.RocketMQ
	}
}

// logSettlementConfigDiff 打印结算相关关键字段的变更，便于审计
func logSettlementConfigDiff(oldCfg, newCfg *Config) {
	if oldCfg.Chain.RPCURL != newCfg.Chain.RPCURL {
		fmt.Printf("[Config]  chain.rpc_url: %s -> %s\n", oldCfg.Chain.RPCURL, newCfg.Chain.RPCURL)
	}
	if oldCfg.Chain.MinterAddress != newCfg.Chain.MinterAddress {
		fmt.Printf("[Config]  chain.minter_address: %s -> %s\n",
			oldCfg.Chain.MinterAddress, newCfg.Chain.MinterAddress)
	}
	if oldCfg.RateLimit.Enabled != newCfg.RateLimit.Enabled {
		fmt.Printf("[Config]  ratelimit.enabled: %v -> %v\n",
			oldCfg.RateLimit.Enabled, newCfg.RateLimit.Enabled)
	}
}
