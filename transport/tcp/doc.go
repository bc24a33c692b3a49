// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp opens the raw, non-blocking IPv4 listening socket the reactor accepts on.
package tcp
