// Package firebaseapp initializes the Firebase Admin SDK from the configuration.
package firebaseapp

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/alama/core"
)

// New initializes a Firebase app. Without configured credentials, the application default credentials are used.
func New(ctx context.Context, conf *core.Config) (*firebase.App, error) {
	var opts []option.ClientOption
	switch {
	case conf.Firebase.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(conf.Firebase.CredentialsFile))
	case conf.Firebase.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(conf.Firebase.CredentialsJSON)))
	}

	var fbConf *firebase.Config
	if conf.Database.URL != "" {
		fbConf = &firebase.Config{DatabaseURL: conf.Database.URL}
	}

	app, err := firebase.NewApp(ctx, fbConf, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}
	return app, nil
}
