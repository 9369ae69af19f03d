package config

import (
	"flag"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/jmgilman/go/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// skippedConfigFlags is the list of command line flags that can't be set from a config file.
var skippedConfigFlags = []string{"config_file", "print_version"}

// parseConfigFile decodes a config file into a struct, picking the format by the file extension.
func parseConfigFile(path string, content []byte) (map[ /*flagName*/ string] /*flagValue*/ string, error) {
	conf := new(structpb.Struct)
	switch extension := strings.ToLower(filepath.Ext(path)); extension {
	case ".json":
		if err := protojson.Unmarshal(content, conf); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to parse json config")
		}
	case ".yaml", ".yml":
		var raw map[string]any
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to parse yaml config")
		}
		var err error
		if conf, err = structpb.NewStruct(raw); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "unsupported yaml config value")
		}
	default:
		return nil, errors.WithContext(
			errors.New(errors.CodeInvalidConfig, "unsupported config file extension"), "extension", extension)
	}
	return collectConfigFlags(conf)
}

// configValueToString converts a config value to its string representation suitable for flag setting.
func configValueToString(value *structpb.Value) (string, error) {
	switch kind := value.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(kind.BoolValue), nil
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64), nil
	case *structpb.Value_StringValue:
		return kind.StringValue, nil
	case *structpb.Value_NullValue:
		return "", errors.New(errors.CodeInvalidConfig, "null values are not supported")
	default:
		// Lists and nested objects have no flag counterpart.
		return "", errors.New(errors.CodeInvalidConfig, "lists and nested objects are not supported")
	}
}

// collectConfigFlags converts every config entry into a flag value, rejecting entries that match no flag.
func collectConfigFlags(conf *structpb.Struct) (map[ /*flagName*/ string] /*flagValue*/ string, error) {
	flags := make(map[string]string, len(conf.GetFields()))
	for name, value := range conf.GetFields() {
		if flag.Lookup(name) == nil || slices.Contains(skippedConfigFlags, name) {
			return nil, errors.WithContext(
				errors.New(errors.CodeInvalidConfig, "config entry doesn't match a settable flag"), "flag", name)
		}
		stringValue, err := configValueToString(value)
		if err != nil {
			return nil, errors.WithContext(err, "flag", name)
		}
		flags[name] = stringValue
	}
	return flags, nil
}

// setConfigFlags sets all the given flags to the global flag variables, skipping the preserved ones. It applies all
// of them or none: if a value fails to parse, the flags set so far are reverted to their previous values.
func setConfigFlags(flags map[ /*flagName*/ string] /*flagValue*/ string, preserved []string) error {
	previousValues := make(map[ /*flagName*/ string] /*flagValue*/ string, len(flags))
	revert := func() {
		for flagName, previous := range previousValues {
			if err := flag.Set(flagName, previous); err != nil {
				slog.Error("Failed to revert flag.", "flag", flagName, "value", previous, "error", err)
			}
		}
	}
	for _, flagName := range slices.Sorted(maps.Keys(flags)) {
		if slices.Contains(preserved, flagName) {
			continue
		}
		previous := flag.Lookup(flagName).Value.String()
		if err := flag.Set(flagName, flags[flagName]); err != nil {
			revert()
			return errors.WithContext(errors.Wrapf(err, errors.CodeInvalidConfig, "failed to set flag %s", flagName),
				"flag", flagName)
		}
		previousValues[flagName] = previous
	}
	return nil
}
