// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

/*
Package supervisor runs the long-lived services under a suture v4
supervisor tree.

	storelens (root)
	├── data-layer
	│   └── similarity-rebuild
	└── api-layer
	    └── http-server

A service that returns an error is restarted with suture's failure decay
and backoff. Supervisor events are logged through sutureslog, bridged to
zerolog by logging.NewSlogLogger.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddDataService(rebuildSvc)
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))
	return tree.Serve(ctx)
*/
package supervisor
