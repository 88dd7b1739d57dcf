package main

import (
	"flag"
	"os"
	"path/filepath"
	"reflect"

	"github.com/LeoCommon/cellgw/internal/gateway/config"
	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// fillEmpty gives every field still at its zero value a placeholder, so that
// "omitempty" does not hide it from the sample
func fillEmpty(v reflect.Value) {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		fillEmpty(v.Elem())

	case reflect.Slice:
		if v.Len() == 0 && v.Type().Elem().Kind() == reflect.String {
			v.Set(reflect.Append(v, reflect.ValueOf("ARG").Convert(v.Type().Elem())))
		}

	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			if !field.CanSet() {
				continue
			}

			// Strings carry the field name, the user has to replace them anyway
			if field.Kind() == reflect.String && field.String() == "" {
				field.SetString(v.Type().Field(i).Name)
				continue
			}
			fillEmpty(field)
		}
	}
}

func main() {
	out := flag.String("out", "./config/"+config.ConfigFile, "where to write the sample")
	flag.Parse()

	log.Init(false)

	// Start from the defaults, placeholders only fill the gaps
	cf := config.New()
	fillEmpty(reflect.ValueOf(cf))

	data, err := toml.Marshal(cf)
	if err != nil {
		log.Fatal("could not encode sample config", zap.Error(err))
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatal("could not create config directory", zap.Error(err))
	}

	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatal("failed to write config file", zap.String("path", *out), zap.Error(err))
	}

	log.Info("sample config written", zap.String("path", *out))
}
