// Package mock provides a deterministic provider used in mock mode and tests.
package mock

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alantheprice/reqgen/pkg/interfaces/types"
)

const (
	Name  = "mock"
	Model = "mock-model"
)

// Provider returns canned markdown for the document type named in the prompt. It never fails.
type Provider struct {
	calls atomic.Int64
}

// New creates a mock provider
func New() *Provider {
	return &Provider{}
}

// GetName returns the provider name
func (p *Provider) GetName() string { return Name }

// GetModel returns the mock model name
func (p *Provider) GetModel() string { return Model }

// IsAvailable always reports true
func (p *Provider) IsAvailable() bool { return true }

// Calls returns how many times Generate has been invoked
func (p *Provider) Calls() int { return int(p.calls.Load()) }

// Generate returns the canned document matching the prompt
func (p *Provider) Generate(ctx context.Context, req types.GenerationRequest) (*types.GenerationResponse, error) {
	start := time.Now()
	p.calls.Add(1)

	content := Response(req.Prompt)
	return &types.GenerationResponse{
		Success:    true,
		Content:    content,
		Provider:   Name,
		Model:      Model,
		TokensUsed: len(strings.Fields(content)),
		Duration:   time.Since(start),
		Metadata:   map[string]any{"mock": true},
	}, nil
}

// Response picks the canned text for prompt. Only the user prompt is inspected since
// system prompts embed earlier documents.
func Response(prompt string) string {
	switch {
	case strings.Contains(prompt, "Technical Requirements Document"):
		return trdResponse
	case strings.Contains(prompt, "Functional Requirements Document"):
		return frdResponse
	case strings.Contains(prompt, "Product Requirements Document"):
		return prdResponse
	case strings.Contains(prompt, "Business Requirements Document"):
		return brdResponse
	default:
		return genericResponse
	}
}

const brdResponse = `# Business Requirements Document

## Executive Summary

This initiative modernises how the organisation captures, qualifies and routes inbound
leads. The current manual process loses roughly a fifth of qualified prospects because
follow-up is slow and ownership is unclear. The proposed platform automates intake and
gives sales leadership a reliable view of pipeline health.

## Business Objectives

- Reduce average lead response time from two days to under four hours.
- Increase lead to opportunity conversion by fifteen percent within two quarters.
- Give each tenant a consistent and auditable qualification process.

## Stakeholders

| Stakeholder | Interest |
|-------------|----------|
| Sales leadership | Pipeline visibility and forecasting |
| Sales representatives | Fast access to qualified leads |
| Marketing | Campaign attribution |
| Operations | Reliable service with low support overhead |

## Business Requirements

1. The business must capture leads from web forms, email and partner feeds.
2. Every lead must be assigned an owner within fifteen minutes of arrival.
3. Managers must be able to review qualification outcomes per representative.
4. Tenants must be isolated so that no customer can see another customer's data.

## Success Criteria

- Response time target met for ninety percent of leads over a rolling month.
- Conversion uplift measured against the baseline quarter.
- Stakeholder satisfaction survey scores of four out of five or higher.
`

const prdResponse = `# Product Requirements Document

## Product Overview

The product is a multi-tenant lead management application. It ingests leads from many
channels, scores them, assigns them to representatives and tracks follow-up until each
lead is converted or closed. It builds directly on the objectives agreed in the business
requirements.

## Target Users

- Sales representatives who work assigned leads every day.
- Sales managers who balance workload and review outcomes.
- Tenant administrators who configure channels, scoring and routing rules.

## Features

| Feature | Description | Priority |
|---------|-------------|----------|
| Lead intake | Web form, email and API ingestion | High |
| Scoring | Configurable rules that rank incoming leads | High |
| Routing | Round robin and territory based assignment | High |
| Dashboards | Pipeline and response time reporting | Medium |

## User Stories

- As a representative, I want new leads pushed to me so that I can respond quickly.
- As a manager, I want to see unworked leads so that I can reassign them.
- As an administrator, I want to define scoring rules so that the best leads come first.

## Acceptance Criteria

- A lead submitted through any channel appears in the assignee queue within one minute.
- Reassignment is recorded with the acting user and timestamp.
- Scoring rule changes apply to new leads without a deployment.
`

const frdResponse = `# Functional Requirements Document

## Functional Overview

This document describes the functional behaviour of the lead management application.
It refines the product features into concrete system functions and describes the data
and integrations those functions depend on.

## Functional Requirements

1. FR-1: The system shall accept leads through an authenticated HTTP endpoint.
2. FR-2: The system shall deduplicate leads by email address within a tenant.
3. FR-3: The system shall compute a score for each lead using the tenant rule set.
4. FR-4: The system shall assign each lead according to the active routing strategy.
5. FR-5: The system shall notify the assignee through email and in-app messages.

## Use Cases

### UC-1 Submit Lead

An external form posts lead details. The system validates the payload, stores the lead,
scores it and assigns an owner.

### UC-2 Reassign Lead

A manager selects an unworked lead and chooses a new owner. The system records the
change and notifies both representatives.

## Data Requirements

- Lead: identifier, tenant, contact details, source, score, owner, status.
- Rule: identifier, tenant, condition, weight.
- Assignment history: lead, previous owner, new owner, actor, timestamp.

## Integration Requirements

- Email delivery through the tenant's configured provider.
- Webhook callbacks to customer CRMs when a lead changes status.
- Import of partner feeds in CSV and JSON formats.
`

const trdResponse = `# Technical Requirements Document

## Technical Overview

The platform is delivered as a set of stateless services behind an API gateway. Services
communicate over HTTP and a message queue, and persist data in a relational database
partitioned by tenant. This document describes how the functional requirements are met.

## System Architecture

- Ingestion service receives leads and publishes intake events.
- Scoring worker consumes intake events and writes scores.
- Routing worker assigns owners and emits notification events.
- API service serves dashboards and administration screens.

` + "```" + `
client -> gateway -> ingestion -> queue -> scoring -> routing -> notifications
` + "```" + `

## Technology Stack

| Layer | Choice |
|-------|--------|
| Services | Go |
| Queue | Redis streams |
| Database | PostgreSQL |
| Deployment | Containers on a managed orchestrator |

## Data Model

Tables for tenants, leads, rules and assignments. Every table carries a tenant
identifier and every query filters on it. Lead status transitions are stored as an
append-only history.

## Security Requirements

- All endpoints require token authentication scoped to a single tenant.
- Data is encrypted in transit with TLS and at rest with managed keys.
- Access to administration functions is limited to tenant administrators.
- Audit events are retained for at least one year.
`

const genericResponse = `# Generated Content

## Overview

This is deterministic content produced by the mock provider. It is returned whenever a
prompt does not name a known requirements document type, which keeps tests and offline
runs predictable without contacting any external service.
`
