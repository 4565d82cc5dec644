package errs

import (
	"errors"
	"fmt"
)

var (
	// context errors
	errInputNil    = errors.New("junction: 输入不能为 nil")
	errKeyNil      = errors.New("junction: key 不存在")
	errKeyNotFound = errors.New("junction: 找不到 key")
	// config errors
	errConfigFormat      = errors.New("junction: 不支持的配置文件格式")
	errConfigKeyNotFound = errors.New("junction: 配置键不存在")
	errConfigDecode      = errors.New("junction: 配置解析失败")
)

func ErrInputNil() error {
	return fmt.Errorf("%w", errInputNil)
}

func ErrKeyNil() error {
	return fmt.Errorf("%w", errKeyNil)
}

func ErrKeyNotFound(key string) error {
	return fmt.Errorf("%w [%s]", errKeyNotFound, key)
}

func ErrConfigFormat(format string) error {
	return fmt.Errorf("%w [%s]", errConfigFormat, format)
}

func ErrConfigKeyNotFound(key string) error {
	return fmt.Errorf("%w [%s]", errConfigKeyNotFound, key)
}

func ErrConfigDecode(source string, err error) error {
	return fmt.Errorf("%w [%s]: %w", errConfigDecode, source, err)
}

// IsKeyNotFound reports whether err came from a missing context or config key.
func IsKeyNotFound(err error) bool {
	return errors.Is(err, errKeyNotFound) || errors.Is(err, errConfigKeyNotFound) || errors.Is(err, errKeyNil)
}
