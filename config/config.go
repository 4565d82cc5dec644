package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dormoron/junction/internal/errs"
)

// Provider 配置提供者接口
type Provider interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetDuration(key string) time.Duration
	Has(key string) bool
	AddChangeListener(listener func(key string))
	Unmarshal(key string, v any) error
}

// Configuration 读取配置文件（YAML、JSON、TOML），用带前缀的环境变量覆盖，
// 并在文件变化时重新加载。
type Configuration struct {
	data       map[string]any
	envPrefix  string
	configFile string
	fileFormat string

	watcher   *fsnotify.Watcher
	listeners []func(string)
	log       *slog.Logger
	mu        sync.RWMutex
}

type Option func(*Configuration)

// WithEnvPrefix 设置环境变量前缀。PREFIX_SERVER__LOG_LEVEL 覆盖 server.log_level：
// 双下划线表示层级。
func WithEnvPrefix(prefix string) Option {
	return func(c *Configuration) {
		c.envPrefix = prefix
	}
}

// WithConfigFile 设置配置文件，格式由扩展名推断
func WithConfigFile(file string) Option {
	return func(c *Configuration) {
		c.configFile = file
		switch strings.ToLower(filepath.Ext(file)) {
		case ".yaml", ".yml":
			c.fileFormat = "yaml"
		case ".json":
			c.fileFormat = "json"
		case ".toml":
			c.fileFormat = "toml"
		default:
			c.fileFormat = "unknown"
		}
	}
}

func WithFormat(format string) Option {
	return func(c *Configuration) {
		c.fileFormat = format
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Configuration) {
		c.log = log
	}
}

// New 创建配置并立即加载。设置了配置文件时会监视文件变化。
func New(options ...Option) (*Configuration, error) {
	c := &Configuration{
		data: make(map[string]any),
		log:  slog.Default(),
	}
	for _, option := range options {
		option(c)
	}
	if err := c.Load(); err != nil {
		return nil, err
	}
	if c.configFile != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, err
		}
		if err := watcher.Add(filepath.Dir(c.configFile)); err != nil {
			_ = watcher.Close()
			return nil, err
		}
		c.watcher = watcher
		go c.watchConfigFile()
	}
	return c, nil
}

// Load 重新读取配置文件和环境变量，替换全部数据
func (c *Configuration) Load() error {
	data := make(map[string]any)
	if c.configFile != "" {
		if err := c.loadConfigFile(data); err != nil {
			return err
		}
	}
	c.loadEnvironmentVariables(data)
	c.mu.Lock()
	c.data = data
	c.mu.Unlock()
	return nil
}

func (c *Configuration) loadConfigFile(into map[string]any) error {
	raw, err := os.ReadFile(c.configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var parsed map[string]any
	switch c.fileFormat {
	case "yaml":
		err = yaml.Unmarshal(raw, &parsed)
	case "json":
		err = json.Unmarshal(raw, &parsed)
	case "toml":
		err = toml.Unmarshal(raw, &parsed)
	default:
		return errs.ErrConfigFormat(c.fileFormat)
	}
	if err != nil {
		return errs.ErrConfigDecode(c.configFile, err)
	}
	for k, v := range parsed {
		into[k] = v
	}
	return nil
}

func (c *Configuration) loadEnvironmentVariables(into map[string]any) {
	if c.envPrefix == "" {
		return
	}
	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, c.envPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, c.envPrefix))
		setPath(into, strings.Split(key, "__"), value)
	}
}

// setPath 按层级写入值，必要时创建中间层
func setPath(m map[string]any, path []string, value any) {
	for _, part := range path[:len(path)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}

func (c *Configuration) watchConfigFile() {
	target := filepath.Clean(c.configFile)
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Clean(event.Name) != target {
				continue
			}
			if err := c.Load(); err != nil {
				c.log.Warn("重新加载配置文件失败", slog.String("file", c.configFile), slog.Any("error", err))
				continue
			}
			c.notifyListeners("")
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Warn("配置文件监视错误", slog.Any("error", err))
		}
	}
}

func (c *Configuration) notifyListeners(key string) {
	c.mu.RLock()
	listeners := make([]func(string), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.RUnlock()
	for _, listener := range listeners {
		listener(key)
	}
}

// Get 支持点分隔的层级键，如 "server.log_level"
func (c *Configuration) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if value, ok := c.data[key]; ok {
		return value, true
	}
	current := c.data
	parts := strings.Split(key, ".")
	for i, part := range parts {
		v, ok := current[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		nested, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		current = nested
	}
	return nil, false
}

func (c *Configuration) GetString(key string) string {
	var s string
	if err := c.decode(key, &s); err != nil {
		return ""
	}
	return s
}

func (c *Configuration) GetInt(key string) int {
	var i int
	if err := c.decode(key, &i); err != nil {
		return 0
	}
	return i
}

func (c *Configuration) GetBool(key string) bool {
	var b bool
	if err := c.decode(key, &b); err != nil {
		return false
	}
	return b
}

func (c *Configuration) GetDuration(key string) time.Duration {
	var d time.Duration
	if err := c.decode(key, &d); err != nil {
		return 0
	}
	return d
}

// Set 设置配置值并通知监听者
func (c *Configuration) Set(key string, value any) {
	c.mu.Lock()
	setPath(c.data, strings.Split(key, "."), value)
	c.mu.Unlock()
	c.notifyListeners(key)
}

func (c *Configuration) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// AddChangeListener 注册监听者。文件重新加载时 key 为空字符串。
func (c *Configuration) AddChangeListener(listener func(key string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener)
}

// Unmarshal 将 key 下的配置解码到 v，字段标签为 `config`
func (c *Configuration) Unmarshal(key string, v any) error {
	return c.decode(key, v)
}

func (c *Configuration) decode(key string, v any) error {
	value, ok := c.Get(key)
	if !ok {
		return errs.ErrConfigKeyNotFound(key)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           v,
		TagName:          "config",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(value); err != nil {
		return errs.ErrConfigDecode(key, err)
	}
	return nil
}

func (c *Configuration) Close() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}
