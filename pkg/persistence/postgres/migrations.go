package postgres

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow templates: ordered task lists owned by a tenant
			CREATE TABLE workflow_templates (
				id VARCHAR(255) PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				industry VARCHAR(50) NOT NULL,
				tasks JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflow_templates_tenant ON workflow_templates(tenant_id);
			CREATE INDEX idx_workflow_templates_deleted_at ON workflow_templates(deleted_at);

			-- Workflow instances: one run of a template against one subject
			CREATE TABLE workflow_instances (
				id VARCHAR(255) PRIMARY KEY,
				template_id VARCHAR(255) NOT NULL,
				tenant_id VARCHAR(255) NOT NULL,
				lead_id VARCHAR(255),
				deal_id VARCHAR(255),
				status VARCHAR(50) NOT NULL,
				metadata JSONB DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_instances_tenant ON workflow_instances(tenant_id);
			CREATE INDEX idx_workflow_instances_status ON workflow_instances(status);
			CREATE INDEX idx_workflow_instances_template ON workflow_instances(template_id);

			-- Task executions: the unit of scheduling and claiming
			CREATE TABLE task_executions (
				id VARCHAR(255) PRIMARY KEY,
				instance_id VARCHAR(255) NOT NULL REFERENCES workflow_instances(id) ON DELETE CASCADE,
				task_id VARCHAR(255) NOT NULL,
				display_order INT NOT NULL DEFAULT 0,
				status VARCHAR(50) NOT NULL,
				scheduled_for TIMESTAMP WITH TIME ZONE,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				result_data JSONB,
				error_message TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_task_executions_instance ON task_executions(instance_id);
			-- Poller scan path: SCHEDULED rows ordered by due time
			CREATE INDEX idx_task_executions_due ON task_executions(status, scheduled_for);

			-- Pending approval records for gated executions
			CREATE TABLE hitl_notifications (
				id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL REFERENCES task_executions(id) ON DELETE CASCADE,
				tenant_id VARCHAR(255) NOT NULL,
				message TEXT,
				urgency VARCHAR(20) NOT NULL DEFAULT 'MEDIUM',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				resolved_at TIMESTAMP WITH TIME ZONE,
				resolution VARCHAR(20),
				approver_id VARCHAR(255),
				note TEXT
			);

			CREATE INDEX idx_hitl_notifications_tenant ON hitl_notifications(tenant_id);
			-- At most one open notification per execution
			CREATE UNIQUE INDEX idx_hitl_notifications_open
				ON hitl_notifications(execution_id) WHERE resolved_at IS NULL;

			-- SMS drip campaigns
			CREATE TABLE sms_campaigns (
				id VARCHAR(255) PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				is_sequence BOOLEAN NOT NULL DEFAULT false,
				daily_limit INT NOT NULL DEFAULT 0,
				status VARCHAR(20) NOT NULL,
				steps JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_sms_campaigns_tenant ON sms_campaigns(tenant_id);
			CREATE INDEX idx_sms_campaigns_active ON sms_campaigns(status, is_sequence);

			CREATE TABLE sms_recipients (
				id VARCHAR(255) PRIMARY KEY,
				first_name VARCHAR(255),
				last_name VARCHAR(255),
				business_name VARCHAR(255),
				contact_person VARCHAR(255),
				phone VARCHAR(50),
				email VARCHAR(255)
			);

			CREATE TABLE sms_enrollments (
				id VARCHAR(255) PRIMARY KEY,
				campaign_id VARCHAR(255) NOT NULL REFERENCES sms_campaigns(id) ON DELETE CASCADE,
				recipient_id VARCHAR(255) NOT NULL,
				current_step INT NOT NULL DEFAULT 0,
				status VARCHAR(20) NOT NULL,
				next_send_at TIMESTAMP WITH TIME ZONE,
				last_replied_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- Drip scan path: ACTIVE enrollments of a campaign ordered by due time
			CREATE INDEX idx_sms_enrollments_due ON sms_enrollments(campaign_id, status, next_send_at);

			CREATE TABLE sms_sequence_messages (
				id VARCHAR(255) PRIMARY KEY,
				enrollment_id VARCHAR(255) NOT NULL,
				campaign_id VARCHAR(255) NOT NULL,
				step INT NOT NULL,
				body TEXT NOT NULL,
				status VARCHAR(20) NOT NULL,
				gateway_message_id VARCHAR(255),
				error_message TEXT,
				sent_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_sms_sequence_messages_enrollment ON sms_sequence_messages(enrollment_id);
		`,
		2: `
			-- Reply tracking is relative to the latest send, not all-time
			ALTER TABLE sms_enrollments ADD COLUMN last_sent_at TIMESTAMP WITH TIME ZONE;
		`,
	}
}
