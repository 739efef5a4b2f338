package service

import "context"

// EvictIdle runs one janitor pass.
func (s *Service) EvictIdle(ctx context.Context) int { return s.evictIdle(ctx) }
