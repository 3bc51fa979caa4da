package database

var schema = []string{
	`CREATE TABLE IF NOT EXISTS managed_groups (
    chat_id BIGINT PRIMARY KEY,
    title VARCHAR(255),
    type VARCHAR(32) NOT NULL DEFAULT 'group',
    is_default TINYINT NOT NULL DEFAULT 0,
    added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`,

	`CREATE TABLE IF NOT EXISTS plans (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    description TEXT,
    currency VARCHAR(8) NOT NULL,
    price_minor_units INT NOT NULL,
    group_id BIGINT,
    is_active TINYINT NOT NULL DEFAULT 1,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`,

	`CREATE TABLE IF NOT EXISTS plan_media (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    plan_id BIGINT NOT NULL,
    file_id VARCHAR(255) NOT NULL,
    media_type VARCHAR(32) NOT NULL DEFAULT 'photo',
    ord INT NOT NULL DEFAULT 0,
    FOREIGN KEY (plan_id) REFERENCES plans(id) ON DELETE CASCADE
)`,

	`CREATE TABLE IF NOT EXISTS users (
    telegram_id BIGINT PRIMARY KEY,
    username VARCHAR(255),
    joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`,

	`CREATE TABLE IF NOT EXISTS subscriptions (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id BIGINT NOT NULL,
    plan_id BIGINT NOT NULL,
    group_id BIGINT NOT NULL,
    start_ts BIGINT NOT NULL,
    end_ts BIGINT NOT NULL,
    payment_type VARCHAR(32) NOT NULL DEFAULT 'full',
    period_month INT NOT NULL,
    period_year INT NOT NULL,
    part_paid VARCHAR(16) NOT NULL DEFAULT 'none',
    invite_link VARCHAR(512),
    active TINYINT NOT NULL DEFAULT 1,
    removed TINYINT NOT NULL DEFAULT 0,
    INDEX idx_subs_user_plan (user_id, plan_id),
    INDEX idx_subs_active_end (active, end_ts)
)`,

	`CREATE TABLE IF NOT EXISTS invoices (
    payload VARCHAR(255) PRIMARY KEY,
    user_id BIGINT NOT NULL,
    plan_id BIGINT NOT NULL,
    amount_minor_units INT NOT NULL,
    payment_type VARCHAR(32) NOT NULL DEFAULT 'full',
    period_month INT NOT NULL,
    period_year INT NOT NULL,
    promo_id BIGINT,
    renewal_end_ts BIGINT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`,

	`CREATE TABLE IF NOT EXISTS manual_payments (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id BIGINT NOT NULL,
    plan_id BIGINT NOT NULL,
    amount_minor_units INT NOT NULL,
    payment_type VARCHAR(32) NOT NULL DEFAULT 'full',
    period_month INT NOT NULL,
    period_year INT NOT NULL,
    promo_id BIGINT,
    receipt_file_id VARCHAR(255),
    receipt_url VARCHAR(512),
    full_name VARCHAR(255),
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    admin_id BIGINT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    reviewed_at TIMESTAMP NULL
)`,

	`CREATE TABLE IF NOT EXISTS payment_methods (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(128) NOT NULL,
    type VARCHAR(32) NOT NULL,
    is_active TINYINT NOT NULL DEFAULT 1,
    description TEXT,
    details TEXT
)`,

	`CREATE TABLE IF NOT EXISTS promo_codes (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    code VARCHAR(64) NOT NULL UNIQUE,
    discount_percent INT NOT NULL DEFAULT 0,
    discount_fixed INT NOT NULL DEFAULT 0,
    is_active TINYINT NOT NULL DEFAULT 1,
    used_count INT NOT NULL DEFAULT 0,
    max_uses INT,
    expires_ts BIGINT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`,

	`CREATE TABLE IF NOT EXISTS promo_usage (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    promo_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    used_ts BIGINT NOT NULL,
    UNIQUE KEY uniq_promo_user (promo_id, user_id),
    FOREIGN KEY (promo_id) REFERENCES promo_codes(id)
)`,

	`CREATE TABLE IF NOT EXISTS sweep_runs (
    name VARCHAR(64) PRIMARY KEY,
    last_run_ts BIGINT NOT NULL
)`,
}

const seedPaymentMethods = `
INSERT INTO payment_methods (name, type, is_active, description, details)
VALUES
('Банковская карта', 'card', 1, 'Оплата банковской картой', ''),
('Ручная оплата', 'manual', 1, 'Оплата по реквизитам с подтверждением чека', 'Реквизиты для оплаты уточняйте у администратора.')`
